// Package main provides the specgen binary entry point.
// Specgen serves the specification generator: record CRUD, the LLM
// formulation pipeline and the knowledge-base index endpoints.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/specgen/llm/providers"

	"github.com/c360studio/specgen/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "specgen"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	dbPath     string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Specification generator service",
		Long: `Specgen turns a free-text feature description into DBML, Gherkin and
a structured specification document using an LLM backend (Ollama or OpenAI).

It also stores users, orders, tickets and prompt configurations in SQLite
and exposes them as JSON endpoints.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides config)")

	cmd.AddCommand(serveCmd(&g))
	cmd.AddCommand(checkCmd(&g))
	cmd.AddCommand(uploadsCmd(&g))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func serveCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), g.logLevel)
			slog.SetDefault(logger)

			cfg, err := loadConfig(g, logger)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			printBanner(cmd.OutOrStdout())

			app, err := NewApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig applies the layered config and the command-line overrides,
// then validates the result.
func loadConfig(g *globalFlags, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.NewLoader(logger).Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.dbPath != "" {
		cfg.Storage.Path = g.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║             Specgen v"+Version+"                    ║")
	fmt.Fprintln(w, "║      Specification Generator                  ║")
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════╝")
}

// commandContext returns cmd's context, or Background when the command
// runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
