package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/specgen/entity"
)

// WeightConfigs persists weight configurations.
type WeightConfigs struct {
	db *sql.DB
}

const weightColumns = `id, name, score_a, score_b, score_c, score_d, updated_at`

func scanWeight(row scanner) (*entity.WeightConfiguration, error) {
	var w entity.WeightConfiguration
	var updated string
	if err := row.Scan(&w.ID, &w.Name, &w.ScoreA, &w.ScoreB, &w.ScoreC, &w.ScoreD, &updated); err != nil {
		return nil, err
	}
	w.UpdatedAt = parseTime(updated)
	return &w, nil
}

// Create inserts w.
func (r *WeightConfigs) Create(ctx context.Context, w *entity.WeightConfiguration) error {
	w.UpdatedAt = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO weight_configurations (name, score_a, score_b, score_c, score_d, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		w.Name, w.ScoreA, w.ScoreB, w.ScoreC, w.ScoreD, formatTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert weight configuration: %w", err)
	}
	w.ID = id
	return nil
}

// Get returns the configuration with the given id.
func (r *WeightConfigs) Get(ctx context.Context, id int64) (*entity.WeightConfiguration, error) {
	return queryOne(ctx, r.db, scanWeight, `SELECT `+weightColumns+` FROM weight_configurations WHERE id = ?`, id)
}

// List returns every configuration in id order.
func (r *WeightConfigs) List(ctx context.Context) ([]*entity.WeightConfiguration, error) {
	return queryAll(ctx, r.db, scanWeight, `SELECT `+weightColumns+` FROM weight_configurations ORDER BY id`)
}

// Update writes the name and scores.
func (r *WeightConfigs) Update(ctx context.Context, w *entity.WeightConfiguration) error {
	w.UpdatedAt = now()
	return execAffected(ctx, r.db,
		`UPDATE weight_configurations SET name = ?, score_a = ?, score_b = ?, score_c = ?, score_d = ?, updated_at = ? WHERE id = ?`,
		w.Name, w.ScoreA, w.ScoreB, w.ScoreC, w.ScoreD, formatTime(w.UpdatedAt), w.ID)
}

// Delete removes a configuration. Linked tickets keep their score and lose the link.
func (r *WeightConfigs) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM weight_configurations WHERE id = ?`, id)
}

// Tickets persists tickets and scores them on every write.
type Tickets struct {
	db      *sql.DB
	weights *WeightConfigs
}

const ticketColumns = `id, title, description, value_a, value_b, value_c, value_d, score, weight_config_id, created_at`

func scanTicket(row scanner) (*entity.Ticket, error) {
	var t entity.Ticket
	var weightID sql.NullInt64
	var created string
	if err := row.Scan(&t.ID, &t.Title, &t.Desc, &t.ValueA, &t.ValueB, &t.ValueC, &t.ValueD,
		&t.Score, &weightID, &created); err != nil {
		return nil, err
	}
	if weightID.Valid {
		id := weightID.Int64
		t.WeightConfigID = &id
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}

// score recomputes t.Score from its linked configuration, if any.
func (r *Tickets) score(ctx context.Context, t *entity.Ticket) error {
	if t.WeightConfigID == nil {
		return nil
	}
	w, err := r.weights.Get(ctx, *t.WeightConfigID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("weight configuration %d: %w", *t.WeightConfigID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	t.ApplyWeights(w)
	return nil
}

// Create scores and inserts t.
func (r *Tickets) Create(ctx context.Context, t *entity.Ticket) error {
	if err := r.score(ctx, t); err != nil {
		return err
	}
	t.CreatedAt = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO tickets (title, description, value_a, value_b, value_c, value_d, score, weight_config_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Desc, t.ValueA, t.ValueB, t.ValueC, t.ValueD, t.Score, nullableID(t.WeightConfigID), formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	t.ID = id
	return nil
}

// Get returns the ticket with the given id.
func (r *Tickets) Get(ctx context.Context, id int64) (*entity.Ticket, error) {
	return queryOne(ctx, r.db, scanTicket, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
}

// List returns every ticket in id order.
func (r *Tickets) List(ctx context.Context) ([]*entity.Ticket, error) {
	return queryAll(ctx, r.db, scanTicket, `SELECT `+ticketColumns+` FROM tickets ORDER BY id`)
}

// Update rescores and writes t.
func (r *Tickets) Update(ctx context.Context, t *entity.Ticket) error {
	if err := r.score(ctx, t); err != nil {
		return err
	}
	return execAffected(ctx, r.db,
		`UPDATE tickets SET title = ?, description = ?, value_a = ?, value_b = ?, value_c = ?, value_d = ?,
		 score = ?, weight_config_id = ? WHERE id = ?`,
		t.Title, t.Desc, t.ValueA, t.ValueB, t.ValueC, t.ValueD, t.Score, nullableID(t.WeightConfigID), t.ID)
}

// Delete removes a ticket.
func (r *Tickets) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM tickets WHERE id = ?`, id)
}

// Count returns the number of tickets.
func (r *Tickets) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// FieldPriorities persists field-priority configurations.
type FieldPriorities struct {
	db *sql.DB
}

const priorityColumns = `id, name, field_order, updated_at`

func scanPriority(row scanner) (*entity.FieldPriorityConfiguration, error) {
	var f entity.FieldPriorityConfiguration
	var order, updated string
	if err := row.Scan(&f.ID, &f.Name, &order, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(order), &f.FieldOrder); err != nil {
		return nil, fmt.Errorf("decode field_order: %w", err)
	}
	if f.FieldOrder == nil {
		f.FieldOrder = []string{}
	}
	f.UpdatedAt = parseTime(updated)
	return &f, nil
}

// Create inserts f.
func (r *FieldPriorities) Create(ctx context.Context, f *entity.FieldPriorityConfiguration) error {
	order, err := encodeJSON(orEmpty(f.FieldOrder))
	if err != nil {
		return err
	}
	f.UpdatedAt = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO field_priority_configurations (name, field_order, updated_at) VALUES (?, ?, ?)`,
		f.Name, order, formatTime(f.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert field priority: %w", err)
	}
	f.ID = id
	return nil
}

// Get returns the configuration with the given id.
func (r *FieldPriorities) Get(ctx context.Context, id int64) (*entity.FieldPriorityConfiguration, error) {
	return queryOne(ctx, r.db, scanPriority,
		`SELECT `+priorityColumns+` FROM field_priority_configurations WHERE id = ?`, id)
}

// List returns every configuration in id order.
func (r *FieldPriorities) List(ctx context.Context) ([]*entity.FieldPriorityConfiguration, error) {
	return queryAll(ctx, r.db, scanPriority,
		`SELECT `+priorityColumns+` FROM field_priority_configurations ORDER BY id`)
}

// Update writes the name and field order.
func (r *FieldPriorities) Update(ctx context.Context, f *entity.FieldPriorityConfiguration) error {
	order, err := encodeJSON(orEmpty(f.FieldOrder))
	if err != nil {
		return err
	}
	f.UpdatedAt = now()
	return execAffected(ctx, r.db,
		`UPDATE field_priority_configurations SET name = ?, field_order = ?, updated_at = ? WHERE id = ?`,
		f.Name, order, formatTime(f.UpdatedAt), f.ID)
}

// Delete removes a configuration.
func (r *FieldPriorities) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM field_priority_configurations WHERE id = ?`, id)
}

// orEmpty keeps nil slices from being stored as JSON null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
