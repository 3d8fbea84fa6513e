package mcp

import (
	"context"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/shiki-ai/shiki/internal/model"
	"github.com/shiki-ai/shiki/internal/registry"
)

func (s *Server) registerTools() {
	// shiki_list_agents — inspect the registry.
	s.mcpServer.AddTool(
		mcplib.NewTool("shiki_list_agents",
			mcplib.WithDescription(`List every registered agent with its enabled state.

WHEN TO USE: Before executing anything. The agent ids returned here are
the ids shiki_execute_agent and shiki_set_agent_enabled accept.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleListAgents,
	)

	// shiki_execute_agent — run one agent, or all of them.
	s.mcpServer.AddTool(
		mcplib.NewTool("shiki_execute_agent",
			mcplib.WithDescription(`Execute a registered agent: assemble its prompt, call the model, and write its output file.

WHEN TO USE: When the user asks to run an analysis that a registered
agent covers. Use shiki_list_agents first to find the right agent id.

WHAT YOU GET BACK: an execution result with status (success, skipped,
or error), the output file path, and a preview of the model output.
A disabled agent comes back skipped without a model call. Omit agent_id
to run every registered agent and get one result per agent.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("agent_id",
				mcplib.Description("The agent to execute. Omit to execute all registered agents in registry order."),
			),
		),
		s.handleExecuteAgent,
	)

	// shiki_set_agent_enabled — flip the enabled flag.
	s.mcpServer.AddTool(
		mcplib.NewTool("shiki_set_agent_enabled",
			mcplib.WithDescription(`Enable or disable a registered agent and persist the change to the registry file.

WHEN TO USE: To take a misbehaving agent out of batch runs, or to bring
one back. Disabled agents are skipped by every execution path until
re-enabled.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("agent_id",
				mcplib.Description("The agent to enable or disable"),
				mcplib.Required(),
			),
			mcplib.WithBoolean("enabled",
				mcplib.Description("true to enable, false to disable"),
				mcplib.Required(),
			),
		),
		s.handleSetAgentEnabled,
	)
}

func (s *Server) handleListAgents(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(map[string]any{"agents": s.store.List()}), nil
}

func (s *Server) handleExecuteAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	if agentID == "" {
		results := s.executor.ExecuteAll(ctx)
		return jsonResult(map[string]any{"results": results}), nil
	}

	if err := model.ValidateAgentID(agentID); err != nil {
		return errorResult(err.Error()), nil
	}
	if _, ok := s.store.Get(agentID); !ok {
		return errorResult(fmt.Sprintf("Agent not found: %s", agentID)), nil
	}
	return jsonResult(s.executor.Execute(ctx, agentID)), nil
}

func (s *Server) handleSetAgentEnabled(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	if agentID == "" {
		return errorResult("agent_id is required"), nil
	}
	if err := model.ValidateAgentID(agentID); err != nil {
		return errorResult(err.Error()), nil
	}
	enabled, err := request.RequireBool("enabled")
	if err != nil {
		return errorResult("enabled is required"), nil
	}

	if err := s.store.SetEnabled(agentID, enabled); err != nil {
		if errors.Is(err, registry.ErrAgentNotFound) {
			return errorResult(fmt.Sprintf("Agent not found: %s", agentID)), nil
		}
		return errorResult(fmt.Sprintf("failed to update agent: %v", err)), nil
	}
	return jsonResult(model.SetEnabledResponse{AgentID: agentID, Enabled: enabled}), nil
}
