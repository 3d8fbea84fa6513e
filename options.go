package shiki

import "log/slog"

// Option configures an App before startup. Options override values
// read from the environment.
type Option func(*resolvedOptions)

type resolvedOptions struct {
	port         int
	portSet      bool
	registryPath string
	historyPath  string
	historySet   bool
	logger       *slog.Logger
	version      string
	provider     CompletionProvider
	watch        *bool
}

// WithPort overrides the HTTP listen port.
func WithPort(port int) Option {
	return func(o *resolvedOptions) {
		o.port = port
		o.portSet = true
	}
}

// WithRegistryPath overrides the path to the agent registry JSON file.
func WithRegistryPath(path string) Option {
	return func(o *resolvedOptions) {
		o.registryPath = path
	}
}

// WithHistoryPath overrides the path to the execution history
// database. An empty path disables history recording.
func WithHistoryPath(path string) Option {
	return func(o *resolvedOptions) {
		o.historyPath = path
		o.historySet = true
	}
}

// WithLogger supplies a logger for all subsystems. Defaults to a JSON
// handler on stderr honoring the configured log level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) {
		o.logger = logger
	}
}

// WithVersion sets the version string reported by the health endpoint
// and the MCP server.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) {
		o.version = version
	}
}

// WithCompletionProvider replaces the configured completion backend
// with a caller-supplied implementation.
func WithCompletionProvider(p CompletionProvider) Option {
	return func(o *resolvedOptions) {
		o.provider = p
	}
}

// WithRegistryWatch enables or disables hot reload of the registry
// file, overriding the environment setting.
func WithRegistryWatch(enabled bool) Option {
	return func(o *resolvedOptions) {
		o.watch = &enabled
	}
}
