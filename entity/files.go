package entity

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/specgen/config"
	"github.com/google/uuid"
)

// SyncPath is a named local directory that cloud sync writes into.
type SyncPath struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields and that the path exists and is writable.
func (s *SyncPath) Validate() error {
	if err := firstErr(
		required("name", s.Name),
		maxLen("name", s.Name, 100),
		required("path", s.Path),
		maxLen("path", s.Path, 256),
	); err != nil {
		return err
	}

	info, err := os.Stat(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return invalid("path", "path does not exist")
	}
	if err != nil {
		return invalid("path", "path is not accessible: %v", err)
	}
	if !writable(s.Path, info) {
		return invalid("path", "path is not writable")
	}
	return nil
}

func writable(path string, info fs.FileInfo) bool {
	if !info.IsDir() {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return false
		}
		return f.Close() == nil
	}
	probe, err := os.CreateTemp(path, ".specgen-probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name) == nil
}

// DefaultUploadPath is the directory recorded for uploads without one.
const DefaultUploadPath = "uploads/"

// UploadedFile records a spreadsheet stored on disk.
type UploadedFile struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	StoredFilename string    `json:"stored_filename"`
	UploadTime     time.Time `json:"upload_time"`
	FileSize       int64     `json:"file_size"`
	FilePath       string    `json:"file_path"`
}

// Validate checks the extension, size and path, then assigns a stored
// filename when none was given.
func (u *UploadedFile) Validate() error {
	if err := required("filename", u.Filename); err != nil {
		return err
	}
	if !strings.HasSuffix(u.Filename, ".xlsx") {
		return invalid("filename", "only .xlsx files are accepted")
	}
	if u.FileSize > config.MaxUploadBytes {
		return invalid("file_size", "file size must not exceed %d bytes (10MiB)", config.MaxUploadBytes)
	}
	if u.FileSize < 0 {
		return invalid("file_size", "file size must not be negative")
	}
	if err := required("file_path", u.FilePath); err != nil {
		return err
	}
	if u.StoredFilename == "" {
		u.StoredFilename = uuid.NewString() + ".xlsx"
	}
	return nil
}

// StoredPath is the on-disk location of the upload.
func (u *UploadedFile) StoredPath() string {
	return filepath.Join(u.FilePath, u.StoredFilename)
}
