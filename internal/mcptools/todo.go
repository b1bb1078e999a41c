package mcptools

import (
	"context"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// AddTool handles the todo_add MCP tool.
type AddTool struct {
	tasks Tasks
	owner models.Identity
}

// NewAddTool creates an AddTool acting for owner.
func NewAddTool(tasks Tasks, owner models.Identity) *AddTool {
	return &AddTool{tasks: tasks, owner: owner}
}

// Definition returns the MCP tool definition for registration.
func (t *AddTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_add",
		mcp.WithDescription("Add a todo. It gets the profile's next index; indices are never reused."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Todo text. May be empty."),
		),
	)
}

// Handle processes the todo_add tool call.
func (t *AddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	task, profile, err := t.tasks.AddTodo(ctx, t.owner, content)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(map[string]any{"todo": task, "profile": profile})
}

// MarkTool handles the todo_mark MCP tool.
type MarkTool struct {
	tasks Tasks
	owner models.Identity
}

// NewMarkTool creates a MarkTool acting for owner.
func NewMarkTool(tasks Tasks, owner models.Identity) *MarkTool {
	return &MarkTool{tasks: tasks, owner: owner}
}

// Definition returns the MCP tool definition for registration.
func (t *MarkTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_mark",
		mcp.WithDescription("Mark a todo as completed. Marking a completed todo fails with already_completed."),
		indexOption(),
	)
}

// Handle processes the todo_mark tool call.
func (t *MarkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, bad := indexArg(req)
	if bad != nil {
		return bad, nil
	}
	ref, err := t.tasks.MarkTodo(ctx, t.owner, index)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(ref)
}

// RemoveTool handles the todo_remove MCP tool.
type RemoveTool struct {
	tasks Tasks
	owner models.Identity
}

// NewRemoveTool creates a RemoveTool acting for owner.
func NewRemoveTool(tasks Tasks, owner models.Identity) *RemoveTool {
	return &RemoveTool{tasks: tasks, owner: owner}
}

// Definition returns the MCP tool definition for registration.
func (t *RemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_remove",
		mcp.WithDescription("Remove a todo, open or completed. Its index is retired and never handed out again."),
		indexOption(),
	)
}

// Handle processes the todo_remove tool call.
func (t *RemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, bad := indexArg(req)
	if bad != nil {
		return bad, nil
	}
	ref, err := t.tasks.RemoveTodo(ctx, t.owner, index)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(ref)
}

// ListTool handles the todo_list MCP tool.
type ListTool struct {
	tasks Tasks
	owner models.Identity
}

// NewListTool creates a ListTool acting for owner.
func NewListTool(tasks Tasks, owner models.Identity) *ListTool {
	return &ListTool{tasks: tasks, owner: owner}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_list",
		mcp.WithDescription("List live todos ordered by index."),
		mcp.WithString("filter",
			mcp.Description("Optional boolean expression over index, content and completed. "+
				"Example: '!completed && index >= 2'"),
		),
	)
}

// Handle processes the todo_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := t.tasks.ListTodos(ctx, t.owner, req.GetString("filter", ""))
	if err != nil {
		return domainError(err), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("No todos."), nil
	}
	return jsonResult(refs)
}
