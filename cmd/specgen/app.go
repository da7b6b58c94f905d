package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/embedding"
	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/metric"
	"github.com/c360studio/specgen/model"
	indexapi "github.com/c360studio/specgen/processor/index-api"
	recordsapi "github.com/c360studio/specgen/processor/records-api"
	specapi "github.com/c360studio/specgen/processor/spec-api"
	"github.com/c360studio/specgen/server"
	"github.com/c360studio/specgen/source/web"
	"github.com/c360studio/specgen/storage"
	"github.com/c360studio/specgen/vectorindex"
	"github.com/c360studio/specgen/workflow"
)

// App wires together all components of the service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *storage.Store
	registry *model.Registry
	watcher  *model.Watcher
	watching bool
	metrics  *metric.Metrics

	// closeCalls drains the NATS connection behind the call store.
	closeCalls func()

	server *server.Server
}

// NewApp opens storage, builds the LLM stack and mounts every handler.
// Call Close to release what it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Info("Specgen ready",
		"version", Version,
		"db", cfg.Storage.Path,
		"backend", cfg.LLM.Backend,
		"language", cfg.LLM.Language)
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg

	a.registry = model.FromConfig(cfg)
	if cfg.LLM.RegistryFile != "" {
		w, err := model.NewWatcher(a.registry, model.WatcherConfig{
			Path:   cfg.LLM.RegistryFile,
			Logger: a.logger,
		})
		if err != nil {
			return fmt.Errorf("create registry watcher: %w", err)
		}
		a.watcher = w
	}

	a.metrics = metric.New()

	clientOpts := []llm.ClientOption{
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithMetrics(a.metrics),
		llm.WithLogger(a.logger),
	}
	if cfg.NATS.URL != "" {
		calls, closeFn, err := llm.ConnectCallStore(ctx, cfg.NATS.URL, cfg.NATS.Stream, llm.WithStoreLogger(a.logger))
		if err != nil {
			// Call capture is optional; serve without it.
			a.logger.Warn("LLM call store unavailable", "url", cfg.NATS.URL, "error", err)
		} else {
			a.closeCalls = closeFn
			clientOpts = append(clientOpts, llm.WithCallStore(calls))
		}
	}
	client := llm.NewClient(a.registry, clientOpts...)

	embedder, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	pipeline := workflow.NewPipeline(client,
		workflow.WithLanguage(cfg.LLM.Language),
		workflow.WithLiveGeneration(cfg.OpenAIConfigured()),
		workflow.WithLogger(a.logger),
	)
	loader := web.NewLoader(web.NewFetcher(), a.logger)

	recordOpts := []recordsapi.Option{
		recordsapi.WithLogger(a.logger),
		recordsapi.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if embedder != nil {
		recordOpts = append(recordOpts, recordsapi.WithEmbedder(embedder))
	}

	a.server = server.New(cfg, server.Deps{
		Store:    a.store,
		Registry: a.registry,
		Metrics:  a.metrics,
		Logger:   a.logger,
		Handlers: []server.Registrar{
			recordsapi.New(a.store, recordOpts...),
			specapi.New(pipeline, a.store.Prompts,
				specapi.WithSourceLoader(loader),
				specapi.WithLogger(a.logger),
				specapi.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
			),
			indexapi.New(vectorindex.NewManager(cfg.Index.Dir, a.store.Tickets), a.logger),
		},
	})
	return nil
}

// Handler exposes the assembled HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run starts the registry watcher and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start registry watcher: %w", err)
		}
		a.watching = true
	}
	return a.server.Run(ctx)
}

// Close stops the watcher, drains NATS and closes the database.
func (a *App) Close() error {
	var errs []error
	if a.watching {
		if err := a.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop registry watcher: %w", err))
		}
	}
	if a.closeCalls != nil {
		a.closeCalls()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
