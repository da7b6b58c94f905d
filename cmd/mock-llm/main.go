// Package main implements a fixture-driven fake LLM for offline end-to-end
// runs of specgen. It speaks both wire protocols the service uses:
//
//   - POST /v1/chat/completions (OpenAI-compatible, single JSON response)
//   - POST /api/chat (Ollama-native, NDJSON stream or one object when
//     "stream" is false)
//
// Usage:
//
//	mock-llm --fixtures ./testdata/fixtures --addr :11434
//
// Replies are files named by model: "gpt-oss_120b.txt" answers model
// "gpt-oss:120b". Numbered files ("gpt-oss_120b.1.txt", ".2.txt") are served
// in order on successive calls for that model, then the base file repeats.
// "default.txt" answers any model without its own fixture.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		fixtureDir string
		addr       string
		chunkSize  int
	)

	cmd := &cobra.Command{
		Use:          "mock-llm",
		Short:        "Serve canned LLM replies over the OpenAI and Ollama chat APIs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			if fixtureDir == "" {
				fixtureDir = os.Getenv("MOCK_LLM_FIXTURES")
			}
			if fixtureDir == "" {
				fixtureDir = "/fixtures"
			}

			fixtures, err := loadFixtures(fixtureDir)
			if err != nil {
				return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
			}
			for key, seq := range fixtures {
				logger.Info("Loaded fixture", "key", key, "replies", len(seq))
			}

			s := newServer(fixtures, logger)
			s.chunkSize = chunkSize

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return listen(ctx, addr, s.routes(), logger)
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "Directory of reply files (default $MOCK_LLM_FIXTURES or /fixtures)")
	cmd.Flags().StringVar(&addr, "addr", ":11434", "Listen address")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", defaultChunkSize, "Characters per streamed Ollama chunk")
	return cmd
}

func listen(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Mock LLM listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
