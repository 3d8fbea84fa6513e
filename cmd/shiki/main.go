package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shiki-ai/shiki"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	level := slog.LevelInfo
	if os.Getenv("SHIKI_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var registryPath string

	root := &cobra.Command{
		Use:           "shiki",
		Short:         "Run AI agents against local documents",
		Long:          "shiki executes a registry of AI agents: each agent couples a prompt,\noptional input files, and an optional JSON template, and persists the\ncompletion result to disk.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "registry", "", "path to the agent registry JSON file (default agents.json)")

	newApp := func(extra ...shiki.Option) (*shiki.App, error) {
		opts := []shiki.Option{
			shiki.WithLogger(logger),
			shiki.WithVersion(version),
		}
		if registryPath != "" {
			opts = append(opts, shiki.WithRegistryPath(registryPath))
		}
		return shiki.New(append(opts, extra...)...)
	}

	root.AddCommand(
		newServeCmd(newApp),
		newRunCmd(newApp),
		newRunAllCmd(newApp),
		newListCmd(newApp),
		newSetEnabledCmd(newApp, "enable", true),
		newSetEnabledCmd(newApp, "disable", false),
		newHistoryCmd(newApp),
	)
	return root
}

type appFactory func(extra ...shiki.Option) (*shiki.App, error)

func newServeCmd(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}

func newRunCmd(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "run <agent_id>",
		Short: "Execute a single agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(shiki.WithRegistryWatch(false))
			if err != nil {
				return err
			}
			defer shutdown(app)

			res := app.ExecuteAgent(cmd.Context(), args[0])
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if res.Status == "error" {
				return fmt.Errorf("agent %s failed: %s", res.AgentID, res.Error)
			}
			return nil
		},
	}
}

func newRunAllCmd(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "run-all",
		Short: "Execute every registered agent in registry order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(shiki.WithRegistryWatch(false))
			if err != nil {
				return err
			}
			defer shutdown(app)

			results := app.ExecuteAll(cmd.Context())
			if err := printJSON(cmd, results); err != nil {
				return err
			}
			failed := 0
			for _, res := range results {
				if res.Status == "error" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d agents failed", failed, len(results))
			}
			return nil
		},
	}
}

func newListCmd(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(shiki.WithRegistryWatch(false))
			if err != nil {
				return err
			}
			defer shutdown(app)
			return printJSON(cmd, app.Agents())
		},
	}
}

func newSetEnabledCmd(newApp appFactory, use string, enabled bool) *cobra.Command {
	short := "Disable an agent without removing it"
	if enabled {
		short = "Enable a previously disabled agent"
	}
	return &cobra.Command{
		Use:   use + " <agent_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(shiki.WithRegistryWatch(false))
			if err != nil {
				return err
			}
			defer shutdown(app)

			if err := app.SetAgentEnabled(args[0], enabled); err != nil {
				return err
			}
			cmd.Printf("agent %s %sd\n", args[0], use)
			return nil
		},
	}
}

func newHistoryCmd(newApp appFactory) *cobra.Command {
	var agentID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show persisted execution history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(shiki.WithRegistryWatch(false))
			if err != nil {
				return err
			}
			defer shutdown(app)

			entries, err := app.Executions(cmd.Context(), agentID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "filter by agent id")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to return")
	return cmd
}

func shutdown(app *shiki.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.Shutdown(ctx)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
