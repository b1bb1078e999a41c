package mcptools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/atinyakov/GophTodo/internal/derive"
	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/repository"
	"github.com/atinyakov/GophTodo/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
)

var owner = models.Identity{0xA1}

func newServices() (*service.ProfileService, *service.TaskService) {
	store := repository.NewMemoryRecordRepository(0)
	d := derive.New(derive.NamespaceFromString("mcp-test"))
	return service.NewProfileService(store, d), service.NewTaskService(store, d)
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	return result
}

func TestTools_Lifecycle(t *testing.T) {
	profiles, tasks := newServices()

	res := call(t, NewInitializeTool(profiles, owner).Handle, nil)
	if res.IsError {
		t.Fatalf("initialize failed: %s", getResultText(res))
	}

	res = call(t, NewAddTool(tasks, owner).Handle, map[string]interface{}{"content": "buy milk"})
	if res.IsError {
		t.Fatalf("add failed: %s", getResultText(res))
	}
	var added struct {
		Todo    service.TaskRef    `json:"todo"`
		Profile service.ProfileRef `json:"profile"`
	}
	if err := json.Unmarshal([]byte(getResultText(res)), &added); err != nil {
		t.Fatalf("decode add result: %v", err)
	}
	if added.Todo.Task.Index != 0 || added.Profile.Profile.NextIndex != 1 {
		t.Errorf("unexpected add result %+v", added)
	}

	res = call(t, NewMarkTool(tasks, owner).Handle, map[string]interface{}{"index": float64(0)})
	if res.IsError {
		t.Fatalf("mark failed: %s", getResultText(res))
	}

	res = call(t, NewListTool(tasks, owner).Handle, map[string]interface{}{"filter": "completed"})
	if !strings.Contains(getResultText(res), "buy milk") {
		t.Errorf("list should include the completed todo, got %s", getResultText(res))
	}

	res = call(t, NewRemoveTool(tasks, owner).Handle, map[string]interface{}{"index": float64(0)})
	if res.IsError {
		t.Fatalf("remove failed: %s", getResultText(res))
	}

	res = call(t, NewListTool(tasks, owner).Handle, nil)
	if got := getResultText(res); got != "No todos." {
		t.Errorf("list after remove = %q", got)
	}

	res = call(t, NewProfileTool(profiles, owner).Handle, nil)
	var p service.ProfileRef
	if err := json.Unmarshal([]byte(getResultText(res)), &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.Profile.NextIndex != 1 || p.Profile.TaskCount != 0 {
		t.Errorf("unexpected profile %+v", p.Profile)
	}
}

func TestTools_DomainErrorsAreToolErrors(t *testing.T) {
	profiles, tasks := newServices()

	res := call(t, NewAddTool(tasks, owner).Handle, map[string]interface{}{"content": "x"})
	if !res.IsError || !strings.HasPrefix(getResultText(res), "profile_not_found") {
		t.Errorf("add without profile = %q", getResultText(res))
	}

	call(t, NewInitializeTool(profiles, owner).Handle, nil)
	res = call(t, NewInitializeTool(profiles, owner).Handle, nil)
	if !res.IsError || !strings.HasPrefix(getResultText(res), "already_initialized") {
		t.Errorf("second initialize = %q", getResultText(res))
	}

	res = call(t, NewMarkTool(tasks, owner).Handle, map[string]interface{}{"index": float64(3)})
	if !res.IsError || !strings.HasPrefix(getResultText(res), "not_found") {
		t.Errorf("mark missing = %q", getResultText(res))
	}

	res = call(t, NewListTool(tasks, owner).Handle, map[string]interface{}{"filter": "index +"})
	if !res.IsError || !strings.HasPrefix(getResultText(res), "invalid_filter") {
		t.Errorf("bad filter = %q", getResultText(res))
	}
}

func TestTools_IndexValidation(t *testing.T) {
	_, tasks := newServices()
	for _, args := range []map[string]interface{}{
		nil,
		{"index": float64(-1)},
		{"index": float64(256)},
		{"index": 1.5},
	} {
		res := call(t, NewMarkTool(tasks, owner).Handle, args)
		if !res.IsError || !strings.Contains(getResultText(res), "'index' is required") {
			t.Errorf("args %v: got %q", args, getResultText(res))
		}
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	profiles, tasks := newServices()
	s := NewServer(profiles, tasks, owner)

	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{"todo_initialize", "todo_profile", "todo_add", "todo_mark", "todo_remove", "todo_list"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("tools/list response is missing %s: %s", name, data)
		}
	}
}
