// gophtodo-mcp serves the todo tools over MCP's stdio transport for a
// single owner identity.
//
// Usage:
//
//	gophtodo-mcp serve -owner <hex identity> [-driver sqlite -sqlite todo.db]
package main

import (
	"fmt"
	"os"

	"github.com/atinyakov/GophTodo/internal/config"
	"github.com/atinyakov/GophTodo/internal/db"
	"github.com/atinyakov/GophTodo/internal/derive"
	"github.com/atinyakov/GophTodo/internal/logger"
	"github.com/atinyakov/GophTodo/internal/mcptools"
	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/repository"
	"github.com/atinyakov/GophTodo/internal/service"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		// drop the subcommand so the flag package sees the options after it
		os.Args = append(os.Args[:1], os.Args[2:]...)
		if err := run(config.Parse()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("gophtodo-mcp %s\n", mcptools.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(options *config.Options) error {
	owner, err := models.ParseIdentity(options.Owner)
	if err != nil {
		return fmt.Errorf("-owner: %w", err)
	}

	// stdout carries the protocol, so the logger writes to stderr only
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		return err
	}
	defer func() { _ = log.Log.Sync() }()

	store, conn, err := repository.Open(db.Driver(options.Driver), options.DatabaseDSN, options.SQLitePath, options.MaxRecordSize)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	if conn != nil {
		defer conn.Close()
	}

	deriver := derive.New(derive.NamespaceFromString(options.Namespace))
	profiles := service.NewProfileService(store, deriver, service.WithLogger(log.Log))
	tasks := service.NewTaskService(store, deriver, service.WithLogger(log.Log))

	log.Log.Info("serving MCP over stdio", zap.Stringer("owner", owner), zap.String("driver", options.Driver))
	return server.ServeStdio(mcptools.NewServer(profiles, tasks, owner))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `gophtodo-mcp %s: todo tools over MCP

Usage:
  gophtodo-mcp serve -owner <hex identity> [flags]

The identity is printed by "client -cmd whoami". Store flags (-driver,
-sqlite, -d, -namespace) must match the HTTPS server to share its data.
`, mcptools.Version)
}
