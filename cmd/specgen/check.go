package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/model"
)

// pingPrompt is sent to each configured backend by check --ping.
const pingPrompt = "Say hello"

func checkCmd(g *globalFlags) *cobra.Command {
	var (
		ping    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Print the effective configuration and LLM backend status",
		Long: `Check prints the resolved configuration and whether each LLM backend
has credentials. With --ping every configured backend is asked to say hello.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), g.logLevel)
			cfg, err := loadConfig(g, logger)
			if err != nil {
				return err
			}

			printConfig(cmd.OutOrStdout(), cfg)
			if !ping {
				return nil
			}

			ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
			defer cancel()
			return pingBackends(ctx, cmd.OutOrStdout(), cfg, func(backend string) llm.Completer {
				return llm.NewClient(pingRegistry(cfg, backend),
					llm.WithTimeout(cfg.LLM.Timeout),
					llm.WithRetryConfig(llm.RetryConfig{MaxAttempts: 1}),
					llm.WithLogger(logger),
				)
			})
		},
	}
	cmd.Flags().BoolVar(&ping, "ping", false, "Send a test prompt to each configured backend")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall time limit for --ping")
	return cmd
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration")
	fmt.Fprintf(w, "  %-10s %s\n", "addr:", cfg.Server.Addr)
	fmt.Fprintf(w, "  %-10s %s\n", "database:", cfg.Storage.Path)
	fmt.Fprintf(w, "  %-10s %s\n", "backend:", cfg.LLM.Backend)
	fmt.Fprintf(w, "  %-10s %s\n", "language:", cfg.LLM.Language)
	fmt.Fprintf(w, "  %-10s %s\n", "uploads:", cfg.Uploads.Dir)
	fmt.Fprintf(w, "  %-10s %s\n", "index:", cfg.Index.Dir)
	nats := cfg.NATS.URL
	if nats == "" {
		nats = "(disabled)"
	}
	fmt.Fprintf(w, "  %-10s %s\n", "nats:", nats)

	fmt.Fprintln(w, "LLM backends")
	for _, s := range cfg.APIKeyStatus() {
		marker := " "
		if s.Preferred {
			marker = "*"
		}
		state := "not configured"
		if s.Configured {
			state = "configured"
		}
		key := s.MaskedKey
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(w, "%s %-7s %-15s key=%s model=%s url=%s\n", marker, s.Name, state, key, s.Model, s.URL)
	}
}

// pingRegistry restricts the general capability to one backend with no
// fallback, so a reply proves that backend works.
func pingRegistry(cfg *config.Config, backend string) *model.Registry {
	r := model.FromConfig(cfg)
	r.SetCapability(model.CapabilityGeneral, &model.CapabilityConfig{
		Description: "connection check",
		Preferred:   []string{backend},
	})
	return r
}

// pingBackends asks every configured backend for a reply. It returns an
// error naming the backends that failed.
func pingBackends(ctx context.Context, w io.Writer, cfg *config.Config, client func(backend string) llm.Completer) error {
	fmt.Fprintln(w, "Ping")

	var failed []string
	for _, s := range cfg.APIKeyStatus() {
		if !s.Configured {
			fmt.Fprintf(w, "  %-7s skipped (not configured)\n", s.Name)
			continue
		}
		resp, err := client(s.Name).Complete(ctx, llm.Request{
			Capability: model.CapabilityGeneral.String(),
			Messages:   []llm.Message{{Role: "user", Content: pingPrompt}},
		})
		if err != nil {
			fmt.Fprintf(w, "  %-7s FAILED: %v\n", s.Name, err)
			failed = append(failed, s.Name)
			continue
		}
		fmt.Fprintf(w, "  %-7s ok (%s): %s\n", s.Name, resp.Model, oneLine(resp.Content, 80))
	}

	if len(failed) > 0 {
		return fmt.Errorf("backend check failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

func oneLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
