// Package orchestrator drives agent executions end to end: registry
// lookup, prompt assembly, completion calls, and output persistence.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shiki-ai/shiki/internal/completion"
	"github.com/shiki-ai/shiki/internal/model"
	"github.com/shiki-ai/shiki/internal/output"
	"github.com/shiki-ai/shiki/internal/prompt"
	"github.com/shiki-ai/shiki/internal/registry"
	"github.com/shiki-ai/shiki/internal/telemetry"
)

// defaultModel is used when the registry does not configure one.
const defaultModel = "claude-sonnet-4-20250514"

// Completer performs a completion with retries. *completion.Retrier is
// the production implementation.
type Completer interface {
	Complete(ctx context.Context, req completion.Request, maxAttempts int) (string, error)
}

// Recorder persists execution records. *history.Store is the
// production implementation.
type Recorder interface {
	Record(ctx context.Context, rec model.ExecutionRecord) error
}

// Orchestrator executes agents from a registry store. A single
// execution never propagates an error to the caller: every failure
// mode is folded into the returned ExecutionResult so one broken agent
// cannot take down a batch.
type Orchestrator struct {
	store     *registry.Store
	assembler *prompt.Assembler
	completer Completer
	recorder  Recorder
	logger    *slog.Logger

	executions metric.Int64Counter
}

// New creates an orchestrator. recorder may be nil to disable history.
func New(store *registry.Store, completer Completer, recorder Recorder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	executions, _ := telemetry.Meter("shiki/orchestrator").Int64Counter("shiki.agent.executions",
		metric.WithDescription("Agent executions by terminal status"),
	)
	return &Orchestrator{
		store:      store,
		assembler:  prompt.NewAssembler(logger),
		completer:  completer,
		recorder:   recorder,
		logger:     logger,
		executions: executions,
	}
}

// Execute runs one agent by id. Unknown agents and failed executions
// come back as error-status results; disabled agents come back
// skipped without any provider call.
func (o *Orchestrator) Execute(ctx context.Context, agentID string) model.ExecutionResult {
	def, ok := o.store.Get(agentID)
	if !ok {
		result := model.ErroredResult(agentID, fmt.Errorf("Agent not found: %s", agentID))
		o.finish(ctx, result, time.Now(), 0)
		return result
	}
	if !def.IsEnabled() {
		result := model.SkippedResult(agentID)
		o.finish(ctx, result, time.Now(), 0)
		return result
	}
	return o.run(ctx, agentID, def)
}

// ExecuteAll runs every registered agent in registry file order.
// Disabled agents produce skipped results and failures produce error
// results; neither stops the batch. Context cancellation does: the
// results collected so far are returned.
func (o *Orchestrator) ExecuteAll(ctx context.Context) []model.ExecutionResult {
	ids := o.store.AgentIDs()
	results := make([]model.ExecutionResult, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			o.logger.Warn("batch execution cancelled", "completed", len(results), "total", len(ids))
			break
		}
		results = append(results, o.Execute(ctx, id))
	}
	return results
}

func (o *Orchestrator) run(ctx context.Context, agentID string, def *model.AgentDefinition) model.ExecutionResult {
	started := time.Now()
	o.logger.Info("executing agent", "agent_id", agentID)

	fullPrompt := o.assembler.Build(def)
	o.logger.Info("prompt assembled", "agent_id", agentID, "length", len(fullPrompt))

	m := o.store.DefaultModel()
	if m == "" {
		m = defaultModel
	}

	settings := o.store.Settings()
	result, err := o.completer.Complete(ctx, completion.Request{
		Model:       m,
		MaxTokens:   def.ResolveMaxTokens(),
		Temperature: def.ResolveTemperature(),
		Prompt:      fullPrompt,
	}, settings.ResolveMaxRetries())
	if err != nil {
		o.logger.Error("agent failed", "agent_id", agentID, "error", err)
		res := model.ErroredResult(agentID, err)
		o.finish(ctx, res, started, time.Since(started))
		return res
	}

	if def.OutputFile != "" {
		writer := output.NewWriter(settings.BackupEnabled(), o.logger)
		if err := writer.Write(def.OutputFile, result); err != nil {
			o.logger.Error("agent failed", "agent_id", agentID, "error", err)
			res := model.ErroredResult(agentID, err)
			o.finish(ctx, res, started, time.Since(started))
			return res
		}
	}

	res := model.ExecutionResult{
		AgentID:    agentID,
		Status:     model.StatusSuccess,
		OutputFile: def.OutputFile,
		Preview:    model.MakePreview(result),
	}
	o.finish(ctx, res, started, time.Since(started))
	return res
}

// finish records metrics and history for a terminal result. History
// writes are best effort and never affect the result.
func (o *Orchestrator) finish(ctx context.Context, res model.ExecutionResult, started time.Time, elapsed time.Duration) {
	if o.executions != nil {
		o.executions.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("agent_id", res.AgentID),
				attribute.String("status", string(res.Status)),
			),
		)
	}
	if o.recorder == nil {
		return
	}
	rec := model.ExecutionRecord{
		AgentID:    res.AgentID,
		Status:     res.Status,
		OutputFile: res.OutputFile,
		Preview:    res.Preview,
		Error:      res.Error,
		StartedAt:  started.UTC(),
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}
	// The record must land even when the triggering request was
	// cancelled mid-execution.
	if err := o.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Error("failed to record execution history", "agent_id", res.AgentID, "error", err)
	}
}
