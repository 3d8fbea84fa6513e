// Package shiki runs a registry of AI agents against local documents.
// Each agent couples a prompt, optional input files, and an optional
// JSON template; executions call a completion provider and persist the
// result. The package can be embedded directly or served over HTTP and
// MCP via Run.
package shiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/shiki-ai/shiki/internal/completion"
	"github.com/shiki-ai/shiki/internal/config"
	"github.com/shiki-ai/shiki/internal/history"
	"github.com/shiki-ai/shiki/internal/mcp"
	"github.com/shiki-ai/shiki/internal/orchestrator"
	"github.com/shiki-ai/shiki/internal/registry"
	"github.com/shiki-ai/shiki/internal/server"
	"github.com/shiki-ai/shiki/internal/telemetry"
)

const defaultVersion = "dev"

// App is the assembled agent pipeline: registry store, completion
// provider, orchestrator, HTTP/MCP server, and optional execution
// history. Create with New and either call the execution methods
// directly or start the server with Run.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	version string

	store        *registry.Store
	watcher      *registry.Watcher
	historyStore *history.Store
	orch         *orchestrator.Orchestrator
	srv          *server.Server

	otelShutdown telemetry.Shutdown
}

// New loads configuration from the environment (and .env if present),
// applies options, and wires all subsystems. The registry file must
// exist and parse; everything else degrades gracefully.
func New(opts ...Option) (*App, error) {
	var resolved resolvedOptions
	for _, opt := range opts {
		opt(&resolved)
	}

	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("shiki: load config: %w", err)
	}
	if resolved.portSet {
		cfg.Port = resolved.port
	}
	if resolved.registryPath != "" {
		cfg.RegistryPath = resolved.registryPath
	}
	if resolved.historySet {
		cfg.HistoryDB = resolved.historyPath
	}
	if resolved.watch != nil {
		cfg.WatchRegistry = *resolved.watch
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("shiki: validate config: %w", err)
	}

	logger := resolved.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.LogLevel),
		}))
	}

	version := resolved.version
	if version == "" {
		version = defaultVersion
	}

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("shiki: init telemetry: %w", err)
	}

	store := registry.NewStore(cfg.RegistryPath, logger)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("shiki: load registry: %w", err)
	}

	// The registry's settings.log_level applies when neither an explicit
	// logger nor SHIKI_LOG_LEVEL is set.
	if resolved.logger == nil && cfg.LogLevel == "" {
		if level := store.Settings().LogLevel; level != "" {
			logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLogLevel(level),
			}))
			store = registry.NewStore(cfg.RegistryPath, logger)
			if err := store.Load(); err != nil {
				return nil, fmt.Errorf("shiki: load registry: %w", err)
			}
		}
	}

	var provider completion.Provider
	if resolved.provider != nil {
		provider = providerAdapter{p: resolved.provider}
	} else {
		provider, err = completion.NewProvider(completion.ProviderConfig{
			Provider:         cfg.Provider,
			AnthropicAPIKey:  cfg.AnthropicAPIKey,
			AnthropicBaseURL: cfg.AnthropicBaseURL,
			AnthropicVersion: cfg.AnthropicVersion,
			OllamaURL:        cfg.OllamaURL,
		})
		if err != nil {
			return nil, fmt.Errorf("shiki: configure provider: %w", err)
		}
	}
	retrier := completion.NewRetrier(provider, cfg.RetryBaseDelay, logger)
	logger.Info("completion provider configured", "provider", provider.Name())

	var historyStore *history.Store
	if cfg.HistoryDB != "" {
		historyStore, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("shiki: open history: %w", err)
		}
	}

	var recorder orchestrator.Recorder
	if historyStore != nil {
		recorder = historyStore
	}
	orch := orchestrator.New(store, retrier, recorder, logger)

	mcpSrv := mcp.New(store, orch, version, logger)

	var historyReader server.HistoryReader
	if historyStore != nil {
		historyReader = historyStore
	}
	handlers := server.NewHandlers(server.HandlersDeps{
		Store:    store,
		Executor: orch,
		History:  historyReader,
		Logger:   logger,
		Version:  version,
	})
	srv := server.New(server.Config{
		Handlers:     handlers,
		Logger:       logger,
		MCPServer:    mcpSrv.MCPServer(),
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	var watcher *registry.Watcher
	if cfg.WatchRegistry {
		watcher, err = registry.NewWatcher(store, logger)
		if err != nil {
			return nil, fmt.Errorf("shiki: watch registry: %w", err)
		}
	}

	return &App{
		cfg:          cfg,
		logger:       logger,
		version:      version,
		store:        store,
		watcher:      watcher,
		historyStore: historyStore,
		orch:         orch,
		srv:          srv,
		otelShutdown: otelShutdown,
	}, nil
}

// Run starts the HTTP server and, when enabled, the registry watcher,
// then blocks until the context is cancelled or a component fails.
// Shutdown is invoked automatically on the way out.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting server", "port", a.cfg.Port, "version", a.version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shiki: serve: %w", err)
		}
		return nil
	})
	if a.watcher != nil {
		g.Go(func() error {
			if err := a.watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shiki: registry watcher: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown stops the HTTP server, closes the history store, and flushes
// telemetry. Safe to call after Run returns.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	var errs []error
	if err := a.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shiki: stop server: %w", err))
	}
	if a.historyStore != nil {
		if err := a.historyStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("shiki: close history: %w", err))
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shiki: flush telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ExecuteAgent runs a single agent by id. Failures are reported in the
// result, not as an error.
func (a *App) ExecuteAgent(ctx context.Context, agentID string) ExecutionResult {
	return publicResult(a.orch.Execute(ctx, agentID))
}

// ExecuteAll runs every registered agent in registry file order.
// Disabled agents are reported as skipped.
func (a *App) ExecuteAll(ctx context.Context) []ExecutionResult {
	results := a.orch.ExecuteAll(ctx)
	out := make([]ExecutionResult, 0, len(results))
	for _, res := range results {
		out = append(out, publicResult(res))
	}
	return out
}

// Agents lists all registered agents in registry file order.
func (a *App) Agents() []AgentInfo {
	summaries := a.store.List()
	out := make([]AgentInfo, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, AgentInfo{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Enabled:     s.Enabled,
		})
	}
	return out
}

// SetAgentEnabled flips an agent's enabled flag and persists the
// registry document.
func (a *App) SetAgentEnabled(agentID string, enabled bool) error {
	return a.store.SetEnabled(agentID, enabled)
}

// Executions returns persisted execution history, newest first. An
// empty agentID matches all agents; limit <= 0 uses the default.
func (a *App) Executions(ctx context.Context, agentID string, limit int) ([]ExecutionLogEntry, error) {
	if a.historyStore == nil {
		return nil, errors.New("shiki: execution history is disabled")
	}
	recs, err := a.historyStore.List(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ExecutionLogEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ExecutionLogEntry{
			ID:         rec.ID,
			AgentID:    rec.AgentID,
			Status:     string(rec.Status),
			OutputFile: rec.OutputFile,
			Preview:    rec.Preview,
			Error:      rec.Error,
			StartedAt:  rec.StartedAt,
			Duration:   rec.Duration,
		})
	}
	return out, nil
}

// Handler exposes the root HTTP handler for embedding in an existing
// server or for tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
