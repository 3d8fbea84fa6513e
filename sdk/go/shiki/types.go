package shiki

import "time"

// Agent is one registered agent as reported by the server.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// ExecutionResult is the outcome of one agent execution. Status is
// "success", "skipped", or "error".
type ExecutionResult struct {
	AgentID    string `json:"agent_id"`
	Status     string `json:"status"`
	OutputFile string `json:"output_file,omitempty"`
	Preview    string `json:"result_preview,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SetEnabledResponse confirms an enable or disable call.
type SetEnabledResponse struct {
	AgentID string `json:"agent_id"`
	Enabled bool   `json:"enabled"`
}

// Execution is one persisted execution history entry.
type Execution struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	Status     string    `json:"status"`
	OutputFile string    `json:"output_file,omitempty"`
	Preview    string    `json:"result_preview,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Health is the server's liveness report.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Agents  int    `json:"agents"`
	Uptime  int64  `json:"uptime_seconds"`
}

type agentsResponse struct {
	Agents []Agent `json:"agents"`
}

type executeAllResponse struct {
	Results []ExecutionResult `json:"results"`
}

type executionsResponse struct {
	Executions []Execution `json:"executions"`
}
