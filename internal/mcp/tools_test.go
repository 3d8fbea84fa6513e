package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiki-ai/shiki/internal/model"
	"github.com/shiki-ai/shiki/internal/registry"
)

type fakeExecutor struct {
	executed []string
	allRuns  int
	result   model.ExecutionResult
}

func (f *fakeExecutor) Execute(_ context.Context, agentID string) model.ExecutionResult {
	f.executed = append(f.executed, agentID)
	res := f.result
	res.AgentID = agentID
	return res
}

func (f *fakeExecutor) ExecuteAll(_ context.Context) []model.ExecutionResult {
	f.allRuns++
	return []model.ExecutionResult{
		{AgentID: "summarizer", Status: model.StatusSuccess},
		{AgentID: "extractor", Status: model.StatusSkipped, Message: "Agent is disabled"},
	}
}

func newTestMCP(t *testing.T) (*Server, *fakeExecutor) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	config := `{"agents": {
		"summarizer": {"name": "Summarizer", "prompt": "p"},
		"extractor": {"name": "Extractor", "enabled": false, "prompt": "p"}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))
	store := registry.NewStore(path, nil)
	require.NoError(t, store.Load())

	exec := &fakeExecutor{result: model.ExecutionResult{Status: model.StatusSuccess, Preview: "ok"}}
	return New(store, exec, "test", nil), exec
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// parseToolText extracts the first TextContent text from a CallToolResult.
func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func TestHandleListAgents(t *testing.T) {
	s, _ := newTestMCP(t)

	result, err := s.handleListAgents(context.Background(), toolRequest("shiki_list_agents", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp struct {
		Agents []model.AgentSummary `json:"agents"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &resp))
	require.Len(t, resp.Agents, 2)
	assert.Equal(t, "summarizer", resp.Agents[0].ID)
	assert.False(t, resp.Agents[1].Enabled)
}

func TestHandleExecuteAgent(t *testing.T) {
	s, exec := newTestMCP(t)

	result, err := s.handleExecuteAgent(context.Background(), toolRequest("shiki_execute_agent", map[string]any{
		"agent_id": "summarizer",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp model.ExecutionResult
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &resp))
	assert.Equal(t, "summarizer", resp.AgentID)
	assert.Equal(t, model.StatusSuccess, resp.Status)
	assert.Equal(t, []string{"summarizer"}, exec.executed)
}

func TestHandleExecuteAgent_Unknown(t *testing.T) {
	s, exec := newTestMCP(t)

	result, err := s.handleExecuteAgent(context.Background(), toolRequest("shiki_execute_agent", map[string]any{
		"agent_id": "ghost",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "Agent not found: ghost")
	assert.Empty(t, exec.executed)
}

func TestHandleExecuteAgent_AllWhenOmitted(t *testing.T) {
	s, exec := newTestMCP(t)

	result, err := s.handleExecuteAgent(context.Background(), toolRequest("shiki_execute_agent", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, 1, exec.allRuns)

	var resp struct {
		Results []model.ExecutionResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, model.StatusSkipped, resp.Results[1].Status)
}

func TestHandleSetAgentEnabled(t *testing.T) {
	s, _ := newTestMCP(t)

	result, err := s.handleSetAgentEnabled(context.Background(), toolRequest("shiki_set_agent_enabled", map[string]any{
		"agent_id": "extractor",
		"enabled":  true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	def, ok := s.store.Get("extractor")
	require.True(t, ok)
	assert.True(t, def.IsEnabled())
}

func TestHandleSetAgentEnabled_MissingArgs(t *testing.T) {
	s, _ := newTestMCP(t)

	result, err := s.handleSetAgentEnabled(context.Background(), toolRequest("shiki_set_agent_enabled", map[string]any{
		"agent_id": "extractor",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleSetAgentEnabled(context.Background(), toolRequest("shiki_set_agent_enabled", map[string]any{
		"enabled": true,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleSetAgentEnabled_Unknown(t *testing.T) {
	s, _ := newTestMCP(t)

	result, err := s.handleSetAgentEnabled(context.Background(), toolRequest("shiki_set_agent_enabled", map[string]any{
		"agent_id": "ghost",
		"enabled":  true,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "Agent not found: ghost")
}

func TestHandleAgentsResource(t *testing.T) {
	s, _ := newTestMCP(t)

	contents, err := s.handleAgentsResource(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "shiki://agents", text.URI)
	assert.Contains(t, text.Text, "summarizer")
}
