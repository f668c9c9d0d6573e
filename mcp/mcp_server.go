// Package mcp exposes the task lifecycle as MCP tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"todo-ledger/core/token"
	"todo-ledger/lifecycle"
	"todo-ledger/log"
)

// Tasks is the lifecycle surface the tools drive.
type Tasks interface {
	List() []token.TaskRecord
	Load(ctx context.Context) ([]token.TaskRecord, error)
	Create(ctx context.Context, req lifecycle.CreateRequest) (token.TaskRecord, error)
	Complete(ctx context.Context, ref token.Outpoint) (token.TaskRecord, error)
	Identity(ctx context.Context) (string, error)
	MinAmount() int64
}

// ServerConfig configures the MCP tool server.
type ServerConfig struct {
	Tasks   Tasks
	Name    string
	Version string
	Logger  log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.Tasks == nil {
		return fmt.Errorf("tasks are required")
	}
	if c.Name == "" {
		c.Name = "TODO Ledger MCP Server"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "mcp.Server"})
	return nil
}

// Server wraps the mcp-go server with the task tools.
type Server struct {
	mcpServer *server.MCPServer
	tasks     Tasks
	logger    log.Logger
}

// NewServer creates the server and registers every tool.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Server{
		mcpServer: server.NewMCPServer(cfg.Name, cfg.Version, server.WithToolCapabilities(true)),
		tasks:     cfg.Tasks,
		logger:    cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

// GetMCPServer returns the underlying MCP server for transport setup.
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.registerListTasksTool()
	s.registerRefreshTasksTool()
	s.registerCreateTaskTool()
	s.registerCompleteTaskTool()
	s.registerIdentityTool()
}
