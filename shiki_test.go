package shiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	response string
}

func (p staticProvider) Complete(_ context.Context, _ CompletionRequest) (string, error) {
	return p.response, nil
}

func (p staticProvider) Name() string { return "static" }

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()

	dir := t.TempDir()
	registryPath := filepath.Join(dir, "agents.json")
	doc := `{
  "agents": {
    "summarizer": {
      "name": "Summarizer",
      "prompt": "Summarize the notes.",
      "output_file": "` + filepath.ToSlash(filepath.Join(dir, "summary.json")) + `"
    },
    "paused": {
      "name": "Paused",
      "prompt": "Never runs.",
      "enabled": false
    }
  }
}`
	require.NoError(t, os.WriteFile(registryPath, []byte(doc), 0o644))

	app, err := New(
		WithRegistryPath(registryPath),
		WithHistoryPath(""),
		WithRegistryWatch(false),
		WithCompletionProvider(staticProvider{response: `{"summary": "ok"}`}),
		WithVersion("test"),
	)
	require.NoError(t, err)
	return app, dir
}

func TestExecuteAgentWritesOutput(t *testing.T) {
	app, dir := newTestApp(t)

	res := app.ExecuteAgent(context.Background(), "summarizer")
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, `{"summary": "ok"}`, res.Preview)

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"summary\": \"ok\"\n}", string(data))
}

func TestExecuteAgentUnknown(t *testing.T) {
	app, _ := newTestApp(t)

	res := app.ExecuteAgent(context.Background(), "ghost")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "Agent not found: ghost", res.Error)
}

func TestExecuteAllSkipsDisabled(t *testing.T) {
	app, _ := newTestApp(t)

	results := app.ExecuteAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "success", results[0].Status)
	assert.Equal(t, "skipped", results[1].Status)
	assert.Equal(t, "Agent is disabled", results[1].Message)
}

func TestSetAgentEnabled(t *testing.T) {
	app, _ := newTestApp(t)

	require.NoError(t, app.SetAgentEnabled("paused", true))
	agents := app.Agents()
	require.Len(t, agents, 2)
	assert.True(t, agents[1].Enabled)

	require.Error(t, app.SetAgentEnabled("ghost", true))
}

func TestExecutionsDisabled(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := app.Executions(context.Background(), "", 10)
	assert.Error(t, err)
}

func TestHandlerServesHealth(t *testing.T) {
	app, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Status  string `json:"status"`
			Version string `json:"version"`
			Agents  int    `json:"agents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, "test", body.Data.Version)
	assert.Equal(t, 2, body.Data.Agents)
}
