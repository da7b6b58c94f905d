// Package vectorindex manages the on-disk knowledge-base index files.
//
// The index is a placeholder: Rebuild writes marker files and Status reports
// fixed metadata. No nearest-neighbour search is performed.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Fixed index metadata.
const (
	Dimension = 384
	IndexType = "IndexFlatL2 + IndexIDMap"
)

// Index file names inside the data directory.
const (
	IndexFile    = "kb_index.faiss"
	MetadataFile = "kb_metadata.json"
	TextsFile    = "kb_texts.pkl"
)

var placeholders = []struct {
	name    string
	content string
}{
	{IndexFile, "FAISS_INDEX_MOCK"},
	{MetadataFile, "{}"},
	{TextsFile, "TEXTS_MOCK"},
}

// TicketCounter reports how many tickets a sync would index.
type TicketCounter interface {
	Count(ctx context.Context) (int, error)
}

// Status describes the index files present on disk.
type Status struct {
	IndexExists    bool   `json:"index_exists"`
	MetadataExists bool   `json:"metadata_exists"`
	TextsExists    bool   `json:"texts_exists"`
	Dimension      int    `json:"dimension"`
	IndexType      string `json:"index_type"`
	RecordCount    int    `json:"record_count"`
}

// RebuildResult is returned by Rebuild.
type RebuildResult struct {
	Result       string `json:"result"`
	Dimension    int    `json:"dimension"`
	FilesCreated int    `json:"files_created"`
}

// SyncResult is returned by Sync.
type SyncResult struct {
	Result        string `json:"result"`
	TicketsSynced int    `json:"tickets_synced"`
	Dimension     int    `json:"dimension"`
}

// Manager owns one index data directory.
type Manager struct {
	dir     string
	tickets TicketCounter
}

// NewManager creates a manager for dir.
func NewManager(dir string, tickets TicketCounter) *Manager {
	return &Manager{dir: dir, tickets: tickets}
}

// Dir returns the data directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Status reports which index files exist.
func (m *Manager) Status() (*Status, error) {
	index, err := m.exists(IndexFile)
	if err != nil {
		return nil, err
	}
	metadata, err := m.exists(MetadataFile)
	if err != nil {
		return nil, err
	}
	texts, err := m.exists(TextsFile)
	if err != nil {
		return nil, err
	}
	return &Status{
		IndexExists:    index,
		MetadataExists: metadata,
		TextsExists:    texts,
		Dimension:      Dimension,
		IndexType:      IndexType,
		RecordCount:    0,
	}, nil
}

// Rebuild creates the data directory and overwrites the three index files.
func (m *Manager) Rebuild() (*RebuildResult, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	for _, p := range placeholders {
		if err := os.WriteFile(filepath.Join(m.dir, p.name), []byte(p.content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	return &RebuildResult{Result: "rebuilt", Dimension: Dimension, FilesCreated: len(placeholders)}, nil
}

// Sync reports the number of tickets that would be indexed.
func (m *Manager) Sync(ctx context.Context) (*SyncResult, error) {
	n, err := m.tickets.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	return &SyncResult{Result: "synced", TicketsSynced: n, Dimension: Dimension}, nil
}

func (m *Manager) exists(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(m.dir, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
