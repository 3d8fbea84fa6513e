package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiki-ai/shiki/internal/completion"
	"github.com/shiki-ai/shiki/internal/model"
	"github.com/shiki-ai/shiki/internal/registry"
)

type scriptedCompleter struct {
	calls    []completion.Request
	attempts []int
	response string
	err      error
}

func (c *scriptedCompleter) Complete(_ context.Context, req completion.Request, maxAttempts int) (string, error) {
	c.calls = append(c.calls, req)
	c.attempts = append(c.attempts, maxAttempts)
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type memoryRecorder struct {
	records []model.ExecutionRecord
	err     error
}

func (r *memoryRecorder) Record(_ context.Context, rec model.ExecutionRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func newTestStore(t *testing.T, config string) *registry.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))
	s := registry.NewStore(path, nil)
	require.NoError(t, s.Load())
	return s
}

func TestExecuteSuccess(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.json")
	config := fmt.Sprintf(`{
		"agents": {
			"summarizer": {
				"name": "Summarizer",
				"prompt": "Summarize the document.",
				"output_file": %q
			}
		},
		"api_config": {"claude": {"default_model": "claude-sonnet-4-20250514"}}
	}`, outPath)

	store := newTestStore(t, config)
	completer := &scriptedCompleter{response: "```json\n{\"summary\": \"hi\"}\n```"}
	recorder := &memoryRecorder{}
	o := New(store, completer, recorder, nil)

	res := o.Execute(context.Background(), "summarizer")
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, "summarizer", res.AgentID)
	assert.Equal(t, outPath, res.OutputFile)
	assert.Equal(t, "```json\n{\"summary\": \"hi\"}\n```", res.Preview)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"summary\": \"hi\"\n}", string(written))

	require.Len(t, completer.calls, 1)
	assert.Equal(t, "claude-sonnet-4-20250514", completer.calls[0].Model)
	assert.Equal(t, 2000, completer.calls[0].MaxTokens)
	assert.InDelta(t, 0.1, completer.calls[0].Temperature, 1e-9)
	assert.Equal(t, []int{3}, completer.attempts)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, model.StatusSuccess, recorder.records[0].Status)
}

func TestExecuteDisabledAgentSkipped(t *testing.T) {
	store := newTestStore(t, `{"agents": {"off": {"name": "Off", "enabled": false, "prompt": "p"}}}`)
	completer := &scriptedCompleter{response: "never"}
	o := New(store, completer, nil, nil)

	res := o.Execute(context.Background(), "off")
	assert.Equal(t, model.StatusSkipped, res.Status)
	assert.Equal(t, "Agent is disabled", res.Message)
	assert.Empty(t, completer.calls, "disabled agent must not reach the provider")
}

func TestExecuteUnknownAgent(t *testing.T) {
	store := newTestStore(t, `{"agents": {}}`)
	o := New(store, &scriptedCompleter{}, nil, nil)

	res := o.Execute(context.Background(), "ghost")
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, "Agent not found: ghost", res.Error)
}

func TestExecuteCompletionFailure(t *testing.T) {
	store := newTestStore(t, `{"agents": {"a": {"name": "A", "prompt": "p"}}}`)
	completer := &scriptedCompleter{err: errors.New("provider down")}
	recorder := &memoryRecorder{}
	o := New(store, completer, recorder, nil)

	res := o.Execute(context.Background(), "a")
	assert.Equal(t, model.StatusError, res.Status)
	assert.Contains(t, res.Error, "provider down")

	require.Len(t, recorder.records, 1)
	assert.Equal(t, model.StatusError, recorder.records[0].Status)
	assert.Contains(t, recorder.records[0].Error, "provider down")
}

func TestExecuteNoOutputFileSkipsPersistence(t *testing.T) {
	store := newTestStore(t, `{"agents": {"a": {"name": "A", "prompt": "p"}}}`)
	completer := &scriptedCompleter{response: "plain text answer"}
	o := New(store, completer, nil, nil)

	res := o.Execute(context.Background(), "a")
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Empty(t, res.OutputFile)
	assert.Equal(t, "plain text answer", res.Preview)
}

func TestExecuteUsesAgentOverrides(t *testing.T) {
	store := newTestStore(t, `{
		"agents": {"a": {"name": "A", "prompt": "p", "max_tokens": 512, "temperature": 0.7}},
		"settings": {"max_retries": 5}
	}`)
	completer := &scriptedCompleter{response: "ok"}
	o := New(store, completer, nil, nil)

	res := o.Execute(context.Background(), "a")
	assert.Equal(t, model.StatusSuccess, res.Status)
	require.Len(t, completer.calls, 1)
	assert.Equal(t, 512, completer.calls[0].MaxTokens)
	assert.InDelta(t, 0.7, completer.calls[0].Temperature, 1e-9)
	assert.Equal(t, []int{5}, completer.attempts)
}

func TestExecuteAllRunsInFileOrder(t *testing.T) {
	store := newTestStore(t, `{"agents": {
		"zeta": {"name": "Z", "prompt": "zeta prompt"},
		"alpha": {"name": "A", "enabled": false, "prompt": "alpha prompt"},
		"mid": {"name": "M", "prompt": "mid prompt"}
	}}`)
	completer := &scriptedCompleter{response: "ok"}
	o := New(store, completer, nil, nil)

	results := o.ExecuteAll(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, "zeta", results[0].AgentID)
	assert.Equal(t, model.StatusSuccess, results[0].Status)
	assert.Equal(t, "alpha", results[1].AgentID)
	assert.Equal(t, model.StatusSkipped, results[1].Status)
	assert.Equal(t, "mid", results[2].AgentID)
	assert.Equal(t, model.StatusSuccess, results[2].Status)
}

func TestExecuteAllContinuesPastFailures(t *testing.T) {
	store := newTestStore(t, `{"agents": {
		"first": {"name": "F", "prompt": "first prompt"},
		"second": {"name": "S", "prompt": "second prompt"}
	}}`)
	completer := &scriptedCompleter{err: errors.New("always fails")}
	o := New(store, completer, nil, nil)

	results := o.ExecuteAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, model.StatusError, results[0].Status)
	assert.Equal(t, model.StatusError, results[1].Status)
	assert.Len(t, completer.calls, 2, "a failing agent must not stop the batch")
}

func TestExecuteAllStopsOnCancelledContext(t *testing.T) {
	store := newTestStore(t, `{"agents": {
		"first": {"name": "F", "prompt": "p"},
		"second": {"name": "S", "prompt": "p"}
	}}`)
	completer := &scriptedCompleter{response: "ok"}
	o := New(store, completer, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := o.ExecuteAll(ctx)
	assert.Empty(t, results)
	assert.Empty(t, completer.calls)
}

func TestExecuteRecorderFailureDoesNotChangeResult(t *testing.T) {
	store := newTestStore(t, `{"agents": {"a": {"name": "A", "prompt": "p"}}}`)
	completer := &scriptedCompleter{response: "ok"}
	recorder := &memoryRecorder{err: errors.New("db locked")}
	o := New(store, completer, recorder, nil)

	res := o.Execute(context.Background(), "a")
	assert.Equal(t, model.StatusSuccess, res.Status)
}

func TestExecutePromptIncludesTemplateAndInput(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "template.json")
	require.NoError(t, os.WriteFile(tmplPath, []byte(`{"summary": ""}`), 0o644))
	inputPath := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("the document body"), 0o644))

	config := fmt.Sprintf(`{"agents": {"a": {
		"name": "A",
		"prompt": "Summarize.",
		"template_file": %q,
		"input_file": %q
	}}}`, tmplPath, inputPath)

	store := newTestStore(t, config)
	completer := &scriptedCompleter{response: "ok"}
	o := New(store, completer, nil, nil)

	res := o.Execute(context.Background(), "a")
	assert.Equal(t, model.StatusSuccess, res.Status)
	require.Len(t, completer.calls, 1)

	sent := completer.calls[0].Prompt
	assert.Contains(t, sent, "Summarize.")
	assert.Contains(t, sent, "Use this exact JSON structure as your template:")
	assert.Contains(t, sent, "Document to analyze:\nthe document body")
}

func TestExecuteLongPreviewTruncated(t *testing.T) {
	store := newTestStore(t, `{"agents": {"a": {"name": "A", "prompt": "p"}}}`)
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	completer := &scriptedCompleter{response: string(long)}
	o := New(store, completer, nil, nil)

	res := o.Execute(context.Background(), "a")
	require.Equal(t, model.StatusSuccess, res.Status)
	assert.Len(t, res.Preview, 203)
	assert.Equal(t, "...", res.Preview[200:])
}
