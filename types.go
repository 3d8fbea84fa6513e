package shiki

import (
	"context"
	"time"
)

// CompletionProvider generates a completion for an assembled prompt.
// When provided via WithCompletionProvider, it replaces the configured
// Anthropic or Ollama backend. No internal package imports — safe to
// implement from outside the module.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}

// CompletionRequest is the public view of one completion call.
type CompletionRequest struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Prompt      string
}

// ExecutionResult is the public view of one agent execution outcome.
// Status is "success", "skipped", or "error"; the Preview, Message,
// and Error fields are populated per status.
type ExecutionResult struct {
	AgentID    string `json:"agent_id"`
	Status     string `json:"status"`
	OutputFile string `json:"output_file,omitempty"`
	Preview    string `json:"result_preview,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AgentInfo is the public listing view of a registered agent.
type AgentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// ExecutionLogEntry is the public view of one persisted execution.
type ExecutionLogEntry struct {
	ID         string        `json:"id"`
	AgentID    string        `json:"agent_id"`
	Status     string        `json:"status"`
	OutputFile string        `json:"output_file,omitempty"`
	Preview    string        `json:"result_preview,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
}
