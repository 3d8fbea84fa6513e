package shiki

import (
	"context"

	"github.com/shiki-ai/shiki/internal/completion"
	"github.com/shiki-ai/shiki/internal/model"
)

// providerAdapter bridges a caller-supplied CompletionProvider into
// the internal provider interface.
type providerAdapter struct {
	p CompletionProvider
}

func (a providerAdapter) Complete(ctx context.Context, req completion.Request) (string, error) {
	return a.p.Complete(ctx, CompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Prompt:      req.Prompt,
	})
}

func (a providerAdapter) Name() string {
	return a.p.Name()
}

func publicResult(res model.ExecutionResult) ExecutionResult {
	return ExecutionResult{
		AgentID:    res.AgentID,
		Status:     string(res.Status),
		OutputFile: res.OutputFile,
		Preview:    res.Preview,
		Message:    res.Message,
		Error:      res.Error,
	}
}
