package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the registry file watcher
type WatcherConfig struct {
	// Path is the JSON registry file to watch
	Path string

	// DebounceDelay is how long to wait for more writes before reloading
	DebounceDelay time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// Watcher reloads a registry file into a Registry whenever it changes.
// The parent directory is watched so editors that replace the file are handled.
type Watcher struct {
	config   WatcherConfig
	registry *Registry
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu      sync.Mutex
	dirty   bool
	reloads int

	done chan struct{}
}

// NewWatcher creates a watcher that merges Path into registry on change.
func NewWatcher(registry *Registry, config WatcherConfig) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("registry file path is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 200 * time.Millisecond
	}

	return &Watcher{
		config:   config,
		registry: registry,
		watcher:  fsw,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start applies the current file contents and begins watching for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.reload(); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("Initial registry load failed", "path", w.config.Path, "error", err)
	}

	if err := w.watcher.Add(filepath.Dir(w.config.Path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.config.Path), err)
	}

	go w.processEvents(ctx)

	w.logger.Info("Registry watcher started",
		"path", w.config.Path,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// Reloads returns how many times the file was successfully applied.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	target := filepath.Clean(w.config.Path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.mu.Lock()
				w.dirty = true
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Registry watcher error", "error", err)

		case <-ticker.C:
			w.mu.Lock()
			dirty := w.dirty
			w.dirty = false
			w.mu.Unlock()

			if !dirty {
				continue
			}
			if err := w.reload(); err != nil {
				w.logger.Warn("Registry reload failed", "path", w.config.Path, "error", err)
			}
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.config.Path)
	if err != nil {
		return err
	}
	cfg, err := parseRegistryConfig(data)
	if err != nil {
		return err
	}

	w.registry.MergeFromConfig(cfg)

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	w.logger.Info("Registry reloaded",
		"path", w.config.Path,
		"endpoints", len(cfg.Endpoints),
		"capabilities", len(cfg.Capabilities))
	return nil
}
