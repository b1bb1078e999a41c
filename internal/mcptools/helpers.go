// Package mcptools exposes the todo lifecycle as MCP tools.
//
// Every tool acts for the single owner the server was started with. Domain
// failures come back as tool error results carrying the error kind, so the
// calling agent can react to them; only transport faults are protocol errors.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
)

// Profiles is the profile lifecycle the tools call into.
type Profiles interface {
	InitializeUser(ctx context.Context, owner models.Identity) (service.ProfileRef, error)
	GetProfile(ctx context.Context, owner models.Identity) (service.ProfileRef, error)
}

// Tasks is the todo lifecycle the tools call into.
type Tasks interface {
	AddTodo(ctx context.Context, owner models.Identity, content string) (service.TaskRef, service.ProfileRef, error)
	MarkTodo(ctx context.Context, owner models.Identity, index uint8) (service.TaskRef, error)
	RemoveTodo(ctx context.Context, owner models.Identity, index uint8) (service.ProfileRef, error)
	ListTodos(ctx context.Context, owner models.Identity, filter string) ([]service.TaskRef, error)
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// domainError turns a service failure into a tool error result.
func domainError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", service.ErrorKind(err), err))
}

// indexArg reads the required "index" argument and checks it fits a todo index.
func indexArg(req mcp.CallToolRequest) (uint8, *mcp.CallToolResult) {
	v := req.GetFloat("index", -1)
	if v < 0 || v > math.MaxUint8 || v != math.Trunc(v) {
		return 0, mcp.NewToolResultError("'index' is required and must be an integer between 0 and 255")
	}
	return uint8(v), nil
}

func indexOption() mcp.ToolOption {
	return mcp.WithNumber("index",
		mcp.Required(),
		mcp.Description("Todo index as returned by todo_add or todo_list (0-255)."),
		mcp.Min(0),
		mcp.Max(255),
	)
}
