package mcptools

import (
	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer creates an MCP server with every todo tool registered for owner.
func NewServer(profiles Profiles, tasks Tasks, owner models.Identity) *server.MCPServer {
	s := server.NewMCPServer(
		"gophtodo",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	initTool := NewInitializeTool(profiles, owner)
	s.AddTool(initTool.Definition(), initTool.Handle)

	profileTool := NewProfileTool(profiles, owner)
	s.AddTool(profileTool.Definition(), profileTool.Handle)

	addTool := NewAddTool(tasks, owner)
	s.AddTool(addTool.Definition(), addTool.Handle)

	markTool := NewMarkTool(tasks, owner)
	s.AddTool(markTool.Definition(), markTool.Handle)

	removeTool := NewRemoveTool(tasks, owner)
	s.AddTool(removeTool.Definition(), removeTool.Handle)

	listTool := NewListTool(tasks, owner)
	s.AddTool(listTool.Definition(), listTool.Handle)

	return s
}
