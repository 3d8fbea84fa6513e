package model

import "time"

// Status is the tagged outcome of one agent execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// previewLimit bounds the result preview carried in an ExecutionResult.
const previewLimit = 200

// ExecutionResult is the only value returned across the pipeline boundary.
// Exactly one of Preview/Message/Error is meaningful depending on Status.
type ExecutionResult struct {
	AgentID    string `json:"agent_id"`
	Status     Status `json:"status"`
	OutputFile string `json:"output_file,omitempty"`
	Preview    string `json:"result_preview,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SkippedResult builds the result for a disabled agent.
func SkippedResult(agentID string) ExecutionResult {
	return ExecutionResult{AgentID: agentID, Status: StatusSkipped, Message: "Agent is disabled"}
}

// ErroredResult builds the result for a failed execution.
func ErroredResult(agentID string, err error) ExecutionResult {
	return ExecutionResult{AgentID: agentID, Status: StatusError, Error: err.Error()}
}

// MakePreview truncates model output for inclusion in an ExecutionResult.
// Counts runes, not bytes, so multi-byte output is never split mid-character.
func MakePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit]) + "..."
}

// ExecutionRecord is one persisted row of execution history.
type ExecutionRecord struct {
	ID         string        `json:"id"`
	AgentID    string        `json:"agent_id"`
	Status     Status        `json:"status"`
	OutputFile string        `json:"output_file,omitempty"`
	Preview    string        `json:"result_preview,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}
