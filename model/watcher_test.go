package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	initial := `{"capabilities": {"spec": {"preferred": ["first"]}},
		"endpoints": {"first": {"provider": "ollama", "model": "llama3.2"}}}`
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewDefaultRegistry()
	w, err := NewWatcher(r, WatcherConfig{Path: path, DebounceDelay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if got := r.Resolve(CapabilitySpec); got != "first" {
		t.Fatalf("initial load not applied, got %q", got)
	}

	updated := `{"capabilities": {"spec": {"preferred": ["second"]}},
		"endpoints": {"second": {"provider": "openai", "model": "gpt-4o"}}}`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.Resolve(CapabilitySpec) == "second" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if got := r.Resolve(CapabilitySpec); got != "second" {
		t.Errorf("expected reload to prefer second, got %q", got)
	}
	if w.Reloads() < 2 {
		t.Errorf("expected at least 2 reloads, got %d", w.Reloads())
	}
}

func TestNewWatcher_RequiresPath(t *testing.T) {
	if _, err := NewWatcher(NewDefaultRegistry(), WatcherConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}
