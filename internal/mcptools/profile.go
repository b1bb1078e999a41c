package mcptools

import (
	"context"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// InitializeTool handles the todo_initialize MCP tool.
type InitializeTool struct {
	profiles Profiles
	owner    models.Identity
}

// NewInitializeTool creates an InitializeTool acting for owner.
func NewInitializeTool(profiles Profiles, owner models.Identity) *InitializeTool {
	return &InitializeTool{profiles: profiles, owner: owner}
}

// Definition returns the MCP tool definition for registration.
func (t *InitializeTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_initialize",
		mcp.WithDescription(
			"Create the todo profile for the current identity. "+
				"Must be called once before adding todos; a second call fails with already_initialized.",
		),
	)
}

// Handle processes the todo_initialize tool call.
func (t *InitializeTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := t.profiles.InitializeUser(ctx, t.owner)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(ref)
}

// ProfileTool handles the todo_profile MCP tool.
type ProfileTool struct {
	profiles Profiles
	owner    models.Identity
}

// NewProfileTool creates a ProfileTool acting for owner.
func NewProfileTool(profiles Profiles, owner models.Identity) *ProfileTool {
	return &ProfileTool{profiles: profiles, owner: owner}
}

// Definition returns the MCP tool definition for registration.
func (t *ProfileTool) Definition() mcp.Tool {
	return mcp.NewTool("todo_profile",
		mcp.WithDescription("Show the profile counters: next_index (the index the next todo gets) and task_count (live todos)."),
	)
}

// Handle processes the todo_profile tool call.
func (t *ProfileTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := t.profiles.GetProfile(ctx, t.owner)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(ref)
}
