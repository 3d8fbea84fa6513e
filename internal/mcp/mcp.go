// Package mcp implements the Model Context Protocol surface of the
// agent pipeline.
//
// The MCP server exposes the same capabilities as the HTTP API through
// MCP tools and resources, so MCP-compatible assistants can inspect
// the registry and trigger agent runs.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/shiki-ai/shiki/internal/model"
	"github.com/shiki-ai/shiki/internal/registry"
)

// Executor runs agents on behalf of MCP tool calls.
type Executor interface {
	Execute(ctx context.Context, agentID string) model.ExecutionResult
	ExecuteAll(ctx context.Context) []model.ExecutionResult
}

// Server wraps the MCP server around the registry and executor.
type Server struct {
	mcpServer *mcpserver.MCPServer
	store     *registry.Store
	executor  Executor
	logger    *slog.Logger
}

// New creates and configures an MCP server with all tools and
// resources registered.
func New(store *registry.Store, executor Executor, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		executor: executor,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"shiki",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// shiki://agents — the full agent roster with enablement state.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"shiki://agents",
			"Registered Agents",
			mcplib.WithResourceDescription("All registered agents with their enabled state, in registry order"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAgentsResource,
	)
}

func (s *Server) handleAgentsResource(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(s.store.List(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal agents: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "shiki://agents",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}
