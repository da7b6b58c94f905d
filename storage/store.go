// Package storage persists specgen records in SQLite through database/sql
// and the pure-Go modernc.org/sqlite driver.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store owns the database handle and the per-table repositories.
type Store struct {
	db *sql.DB

	Users      *Users
	Orders     *Orders
	Weights    *WeightConfigs
	Tickets    *Tickets
	Priorities *FieldPriorities
	Sentences  *Sentences
	Prompts    *Prompts
	SyncPaths  *SyncPaths
	Sessions   *ChatSessions
	Memories   *CategoryMemories
	Uploads    *Uploads
}

// Open opens (creating if needed) the database at path, enables foreign
// keys and applies the schema. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := path
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each connection to :memory: is a separate database, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return newStore(db), nil
}

func newStore(db *sql.DB) *Store {
	s := &Store{db: db}
	s.Users = &Users{db: db}
	s.Orders = &Orders{db: db}
	s.Weights = &WeightConfigs{db: db}
	s.Tickets = &Tickets{db: db, weights: s.Weights}
	s.Priorities = &FieldPriorities{db: db}
	s.Sentences = &Sentences{db: db}
	s.Prompts = &Prompts{db: db}
	s.SyncPaths = &SyncPaths{db: db}
	s.Sessions = &ChatSessions{db: db}
	s.Memories = &CategoryMemories{db: db}
	s.Uploads = &Uploads{db: db}
	return s
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current time in UTC.
func now() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// execAffected runs a write and reports ErrNotFound when no row matched.
func execAffected(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// insert runs an INSERT and returns the new row id.
func insert(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return res.LastInsertId()
}

// queryAll collects every row of a query through scan.
func queryAll[T any](ctx context.Context, db *sql.DB, scan func(scanner) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// queryOne scans a single row, mapping sql.ErrNoRows to ErrNotFound.
func queryOne[T any](ctx context.Context, db *sql.DB, scan func(scanner) (*T, error), query string, args ...any) (*T, error) {
	item, err := scan(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return item, nil
}
