package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shiki-ai/shiki/internal/model"
	"github.com/shiki-ai/shiki/internal/registry"
)

// Executor runs agents. *orchestrator.Orchestrator is the production
// implementation.
type Executor interface {
	Execute(ctx context.Context, agentID string) model.ExecutionResult
	ExecuteAll(ctx context.Context) []model.ExecutionResult
}

// HistoryReader lists past executions. *history.Store is the
// production implementation; nil disables the endpoint.
type HistoryReader interface {
	List(ctx context.Context, agentID string, limit int) ([]model.ExecutionRecord, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store    *registry.Store
	executor Executor
	history  HistoryReader
	logger   *slog.Logger
	version  string
	started  time.Time
}

// HandlersDeps holds dependencies for creating Handlers.
type HandlersDeps struct {
	Store    *registry.Store
	Executor Executor
	History  HistoryReader
	Logger   *slog.Logger
	Version  string
}

// NewHandlers creates the handler set.
func NewHandlers(deps HandlersDeps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:    deps.Store,
		executor: deps.Executor,
		history:  deps.History,
		logger:   logger,
		version:  deps.Version,
		started:  time.Now(),
	}
}

// HandleListAgents returns every registered agent in registry order.
func (h *Handlers) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"agents": h.store.List()})
}

// HandleExecuteAgent runs one agent and returns its execution result.
// Execution failures still return 200: the result itself carries the
// error status, mirroring batch behavior.
func (h *Handlers) HandleExecuteAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent_id")
	if err := model.ValidateAgentID(agentID); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if _, ok := h.store.Get(agentID); !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "Agent not found: "+agentID)
		return
	}

	result := h.executor.Execute(r.Context(), agentID)
	writeJSON(w, r, http.StatusOK, result)
}

// HandleExecuteAll runs every agent and returns all results.
func (h *Handlers) HandleExecuteAll(w http.ResponseWriter, r *http.Request) {
	results := h.executor.ExecuteAll(r.Context())
	writeJSON(w, r, http.StatusOK, map[string]any{"results": results})
}

// HandleEnableAgent turns an agent on and persists the registry.
func (h *Handlers) HandleEnableAgent(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// HandleDisableAgent turns an agent off and persists the registry.
func (h *Handlers) HandleDisableAgent(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handlers) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	agentID := r.PathValue("agent_id")
	if err := model.ValidateAgentID(agentID); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.store.SetEnabled(agentID, enabled); err != nil {
		if errors.Is(err, registry.ErrAgentNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "Agent not found: "+agentID)
			return
		}
		h.logger.Error("failed to update agent", "agent_id", agentID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to persist registry")
		return
	}
	writeJSON(w, r, http.StatusOK, model.SetEnabledResponse{AgentID: agentID, Enabled: enabled})
}

// HandleListExecutions returns recent execution history, newest first.
func (h *Handlers) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "execution history is disabled")
		return
	}

	agentID := r.URL.Query().Get("agent_id")
	if agentID != "" {
		if err := model.ValidateAgentID(agentID); err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.history.List(r.Context(), agentID, limit)
	if err != nil {
		h.logger.Error("failed to list executions", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to list executions")
		return
	}
	if records == nil {
		records = []model.ExecutionRecord{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"executions": records})
}

// HandleHealth reports liveness plus basic registry stats.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Agents:  len(h.store.AgentIDs()),
		Uptime:  int64(time.Since(h.started).Seconds()),
	})
}
