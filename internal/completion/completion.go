// Package completion sends assembled prompts to a model provider and
// retries transient failures with exponential backoff.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shiki-ai/shiki/internal/telemetry"
)

// Request carries everything a provider needs for one completion call.
type Request struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Prompt      string
}

// Provider performs a single completion call against a model backend.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// ErrCompletionFailed wraps the final error after all retry attempts
// are exhausted.
var ErrCompletionFailed = errors.New("completion: all attempts failed")

// Retrier wraps a provider with exponential backoff. The delay before
// retry n is BaseDelay * 2^(n-1), and the wait is abandoned as soon as
// the context is cancelled.
type Retrier struct {
	provider  Provider
	baseDelay time.Duration
	logger    *slog.Logger
	retries   metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewRetrier wraps provider. baseDelay is the delay before the first
// retry; it defaults to one second when zero.
func NewRetrier(provider Provider, baseDelay time.Duration, logger *slog.Logger) *Retrier {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	meter := telemetry.Meter("shiki/completion")
	retries, _ := meter.Int64Counter("shiki.completion.retries",
		metric.WithDescription("Completion attempts that failed and were retried"))
	duration, _ := meter.Float64Histogram("shiki.completion.duration",
		metric.WithDescription("Completion call duration"),
		metric.WithUnit("s"))
	return &Retrier{
		provider:  provider,
		baseDelay: baseDelay,
		logger:    logger,
		retries:   retries,
		duration:  duration,
	}
}

// Complete calls the provider up to maxAttempts times. Non-final
// failures are logged at warn level; the final failure is wrapped in
// ErrCompletionFailed. Context cancellation aborts both in-flight calls
// and backoff waits.
func (r *Retrier) Complete(ctx context.Context, req Request, maxAttempts int) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	delay := r.baseDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		started := time.Now()
		result, err := r.provider.Complete(ctx, req)
		if r.duration != nil {
			r.duration.Record(ctx, time.Since(started).Seconds(),
				metric.WithAttributes(attribute.String("provider", r.provider.Name())))
		}
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}
		if r.retries != nil {
			r.retries.Add(ctx, 1,
				metric.WithAttributes(attribute.String("provider", r.provider.Name())))
		}
		r.logger.Warn("completion attempt failed, retrying",
			"provider", r.provider.Name(),
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrCompletionFailed, maxAttempts, lastErr)
}
