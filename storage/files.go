package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/specgen/entity"
)

// SyncPaths persists sync-path configurations.
type SyncPaths struct {
	db *sql.DB
}

const syncPathColumns = `id, name, path, updated_at`

func scanSyncPath(row scanner) (*entity.SyncPath, error) {
	var s entity.SyncPath
	var updated string
	if err := row.Scan(&s.ID, &s.Name, &s.Path, &updated); err != nil {
		return nil, err
	}
	s.UpdatedAt = parseTime(updated)
	return &s, nil
}

// Create inserts s. Duplicate names or paths return ErrConflict.
func (r *SyncPaths) Create(ctx context.Context, s *entity.SyncPath) error {
	s.UpdatedAt = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO sync_paths (name, path, updated_at) VALUES (?, ?, ?)`,
		s.Name, s.Path, formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert sync path: %w", err)
	}
	s.ID = id
	return nil
}

// Get returns the sync path with the given id.
func (r *SyncPaths) Get(ctx context.Context, id int64) (*entity.SyncPath, error) {
	return queryOne(ctx, r.db, scanSyncPath, `SELECT `+syncPathColumns+` FROM sync_paths WHERE id = ?`, id)
}

// List returns every sync path in id order.
func (r *SyncPaths) List(ctx context.Context) ([]*entity.SyncPath, error) {
	return queryAll(ctx, r.db, scanSyncPath, `SELECT `+syncPathColumns+` FROM sync_paths ORDER BY id`)
}

// Update writes the name and path.
func (r *SyncPaths) Update(ctx context.Context, s *entity.SyncPath) error {
	s.UpdatedAt = now()
	return execAffected(ctx, r.db,
		`UPDATE sync_paths SET name = ?, path = ?, updated_at = ? WHERE id = ?`,
		s.Name, s.Path, formatTime(s.UpdatedAt), s.ID)
}

// Delete removes a sync path.
func (r *SyncPaths) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM sync_paths WHERE id = ?`, id)
}

// Uploads persists uploaded-file records.
type Uploads struct {
	db *sql.DB
}

const uploadColumns = `id, filename, stored_filename, upload_time, file_size, file_path`

func scanUpload(row scanner) (*entity.UploadedFile, error) {
	var u entity.UploadedFile
	var uploaded string
	if err := row.Scan(&u.ID, &u.Filename, &u.StoredFilename, &uploaded, &u.FileSize, &u.FilePath); err != nil {
		return nil, err
	}
	u.UploadTime = parseTime(uploaded)
	return &u, nil
}

// Create inserts u.
func (r *Uploads) Create(ctx context.Context, u *entity.UploadedFile) error {
	u.UploadTime = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO uploaded_files (filename, stored_filename, upload_time, file_size, file_path) VALUES (?, ?, ?, ?, ?)`,
		u.Filename, u.StoredFilename, formatTime(u.UploadTime), u.FileSize, u.FilePath)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	u.ID = id
	return nil
}

// Get returns the upload with the given id.
func (r *Uploads) Get(ctx context.Context, id int64) (*entity.UploadedFile, error) {
	return queryOne(ctx, r.db, scanUpload, `SELECT `+uploadColumns+` FROM uploaded_files WHERE id = ?`, id)
}

// List returns every upload in id order.
func (r *Uploads) List(ctx context.Context) ([]*entity.UploadedFile, error) {
	return queryAll(ctx, r.db, scanUpload, `SELECT `+uploadColumns+` FROM uploaded_files ORDER BY id`)
}

// Delete removes an upload record. The file on disk is left for Prune.
func (r *Uploads) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM uploaded_files WHERE id = ?`, id)
}

// OrphanPattern matches the spreadsheets Prune considers.
const OrphanPattern = "**/*.xlsx"

// Prune removes spreadsheets under dir whose file name is not the stored
// filename of any upload record. With dryRun set nothing is removed.
// It returns the orphaned paths.
func (r *Uploads) Prune(ctx context.Context, dir string, dryRun bool) ([]string, error) {
	uploads, err := r.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	known := make(map[string]bool, len(uploads))
	for _, u := range uploads {
		known[u.StoredFilename] = true
	}

	matches, err := doublestar.Glob(os.DirFS(dir), OrphanPattern)
	if err != nil {
		return nil, fmt.Errorf("glob uploads: %w", err)
	}

	var orphans []string
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return orphans, err
		}
		if known[path.Base(m)] {
			continue
		}
		full := filepath.Join(dir, filepath.FromSlash(m))
		if !dryRun {
			if err := os.Remove(full); err != nil {
				return orphans, fmt.Errorf("remove %s: %w", full, err)
			}
		}
		orphans = append(orphans, full)
	}
	return orphans, nil
}
