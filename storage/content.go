package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/c360studio/specgen/entity"
)

// Sentences persists sentence records and their embeddings.
type Sentences struct {
	db *sql.DB
}

const sentenceColumns = `id, user_name, sentence, category, embedding, created_at, updated_at`

func scanSentence(row scanner) (*entity.SentenceRecord, error) {
	var s entity.SentenceRecord
	var embedding, created, updated string
	if err := row.Scan(&s.ID, &s.User, &s.Sentence, &s.Category, &embedding, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(embedding), &s.Embedding); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	s.Embedding = orEmpty(s.Embedding)
	s.CreatedAt = parseTime(created)
	s.UpdatedAt = parseTime(updated)
	return &s, nil
}

// Create inserts s.
func (r *Sentences) Create(ctx context.Context, s *entity.SentenceRecord) error {
	embedding, err := encodeJSON(orEmpty(s.Embedding))
	if err != nil {
		return err
	}
	s.CreatedAt = now()
	s.UpdatedAt = s.CreatedAt
	id, err := insert(ctx, r.db,
		`INSERT INTO sentences (user_name, sentence, category, embedding, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.User, s.Sentence, s.Category, embedding, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert sentence: %w", err)
	}
	s.ID = id
	return nil
}

// Get returns the sentence with the given id.
func (r *Sentences) Get(ctx context.Context, id int64) (*entity.SentenceRecord, error) {
	return queryOne(ctx, r.db, scanSentence, `SELECT `+sentenceColumns+` FROM sentences WHERE id = ?`, id)
}

// List returns every sentence in id order.
func (r *Sentences) List(ctx context.Context) ([]*entity.SentenceRecord, error) {
	return queryAll(ctx, r.db, scanSentence, `SELECT `+sentenceColumns+` FROM sentences ORDER BY id`)
}

// Update writes every mutable column.
func (r *Sentences) Update(ctx context.Context, s *entity.SentenceRecord) error {
	embedding, err := encodeJSON(orEmpty(s.Embedding))
	if err != nil {
		return err
	}
	s.UpdatedAt = now()
	return execAffected(ctx, r.db,
		`UPDATE sentences SET user_name = ?, sentence = ?, category = ?, embedding = ?, updated_at = ? WHERE id = ?`,
		s.User, s.Sentence, s.Category, embedding, formatTime(s.UpdatedAt), s.ID)
}

// Delete removes a sentence.
func (r *Sentences) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM sentences WHERE id = ?`, id)
}

// Prompts persists prompt configurations.
type Prompts struct {
	db *sql.DB
}

const promptColumns = `id, task_type, prompt, model, updated_at`

func scanPrompt(row scanner) (*entity.PromptConfiguration, error) {
	var p entity.PromptConfiguration
	var updated string
	if err := row.Scan(&p.ID, &p.TaskType, &p.Prompt, &p.Model, &updated); err != nil {
		return nil, err
	}
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// Create inserts p.
func (r *Prompts) Create(ctx context.Context, p *entity.PromptConfiguration) error {
	p.UpdatedAt = now()
	id, err := insert(ctx, r.db,
		`INSERT INTO prompt_configurations (task_type, prompt, model, updated_at) VALUES (?, ?, ?, ?)`,
		p.TaskType, p.Prompt, p.Model, formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	p.ID = id
	return nil
}

// Get returns the prompt with the given id.
func (r *Prompts) Get(ctx context.Context, id int64) (*entity.PromptConfiguration, error) {
	return queryOne(ctx, r.db, scanPrompt, `SELECT `+promptColumns+` FROM prompt_configurations WHERE id = ?`, id)
}

// GetByTaskType returns the first prompt stored for a task type.
func (r *Prompts) GetByTaskType(ctx context.Context, taskType string) (*entity.PromptConfiguration, error) {
	return queryOne(ctx, r.db, scanPrompt,
		`SELECT `+promptColumns+` FROM prompt_configurations WHERE task_type = ? ORDER BY id LIMIT 1`, taskType)
}

// List returns every prompt in id order.
func (r *Prompts) List(ctx context.Context) ([]*entity.PromptConfiguration, error) {
	return queryAll(ctx, r.db, scanPrompt, `SELECT `+promptColumns+` FROM prompt_configurations ORDER BY id`)
}

// Update writes the task type, prompt and model.
func (r *Prompts) Update(ctx context.Context, p *entity.PromptConfiguration) error {
	p.UpdatedAt = now()
	return execAffected(ctx, r.db,
		`UPDATE prompt_configurations SET task_type = ?, prompt = ?, model = ?, updated_at = ? WHERE id = ?`,
		p.TaskType, p.Prompt, p.Model, formatTime(p.UpdatedAt), p.ID)
}

// Delete removes a prompt.
func (r *Prompts) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM prompt_configurations WHERE id = ?`, id)
}

// ChatSessions persists chat sessions keyed by session id.
type ChatSessions struct {
	db *sql.DB
}

const sessionColumns = `session_id, title, messages, created_at, updated_at`

func scanSession(row scanner) (*entity.ChatSession, error) {
	var c entity.ChatSession
	var messages, created, updated string
	if err := row.Scan(&c.SessionID, &c.Title, &messages, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &c.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	c.Messages = orEmpty(c.Messages)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

// Create inserts c. A duplicate session id returns ErrConflict.
func (r *ChatSessions) Create(ctx context.Context, c *entity.ChatSession) error {
	messages, err := encodeJSON(orEmpty(c.Messages))
	if err != nil {
		return err
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	if _, err := insert(ctx, r.db,
		`INSERT INTO chat_sessions (session_id, title, messages, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.SessionID, c.Title, messages, formatTime(c.CreatedAt), formatTime(c.UpdatedAt)); err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

// Get returns the session with the given id.
func (r *ChatSessions) Get(ctx context.Context, sessionID string) (*entity.ChatSession, error) {
	return queryOne(ctx, r.db, scanSession, `SELECT `+sessionColumns+` FROM chat_sessions WHERE session_id = ?`, sessionID)
}

// List returns every session ordered by creation.
func (r *ChatSessions) List(ctx context.Context) ([]*entity.ChatSession, error) {
	return queryAll(ctx, r.db, scanSession, `SELECT `+sessionColumns+` FROM chat_sessions ORDER BY created_at, session_id`)
}

// Update writes the title and messages.
func (r *ChatSessions) Update(ctx context.Context, c *entity.ChatSession) error {
	messages, err := encodeJSON(orEmpty(c.Messages))
	if err != nil {
		return err
	}
	c.UpdatedAt = now()
	return execAffected(ctx, r.db,
		`UPDATE chat_sessions SET title = ?, messages = ?, updated_at = ? WHERE session_id = ?`,
		c.Title, messages, formatTime(c.UpdatedAt), c.SessionID)
}

// Delete removes a session.
func (r *ChatSessions) Delete(ctx context.Context, sessionID string) error {
	return execAffected(ctx, r.db, `DELETE FROM chat_sessions WHERE session_id = ?`, sessionID)
}

// CategoryMemories persists configuration item categories.
type CategoryMemories struct {
	db *sql.DB
}

const memoryColumns = `id, configuration_item, category, created_at, updated_at`

func scanMemory(row scanner) (*entity.CategoryMemory, error) {
	var m entity.CategoryMemory
	var created, updated string
	if err := row.Scan(&m.ID, &m.ConfigurationItem, &m.Category, &created, &updated); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return &m, nil
}

// Create inserts m. A duplicate (configuration_item, category) pair returns ErrConflict.
func (r *CategoryMemories) Create(ctx context.Context, m *entity.CategoryMemory) error {
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	id, err := insert(ctx, r.db,
		`INSERT INTO category_memories (configuration_item, category, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		m.ConfigurationItem, m.Category, formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert category memory: %w", err)
	}
	m.ID = id
	return nil
}

// Get returns the memory with the given id.
func (r *CategoryMemories) Get(ctx context.Context, id int64) (*entity.CategoryMemory, error) {
	return queryOne(ctx, r.db, scanMemory, `SELECT `+memoryColumns+` FROM category_memories WHERE id = ?`, id)
}

// List returns every memory in id order.
func (r *CategoryMemories) List(ctx context.Context) ([]*entity.CategoryMemory, error) {
	return queryAll(ctx, r.db, scanMemory, `SELECT `+memoryColumns+` FROM category_memories ORDER BY id`)
}

// Update writes both fields.
func (r *CategoryMemories) Update(ctx context.Context, m *entity.CategoryMemory) error {
	m.UpdatedAt = now()
	return execAffected(ctx, r.db,
		`UPDATE category_memories SET configuration_item = ?, category = ?, updated_at = ? WHERE id = ?`,
		m.ConfigurationItem, m.Category, formatTime(m.UpdatedAt), m.ID)
}

// Delete removes a memory.
func (r *CategoryMemories) Delete(ctx context.Context, id int64) error {
	return execAffected(ctx, r.db, `DELETE FROM category_memories WHERE id = ?`, id)
}
