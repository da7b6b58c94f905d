package entity

import (
	"strings"
	"time"
)

// SentenceRecord is a stored sentence with an optional embedding vector.
type SentenceRecord struct {
	ID        int64     `json:"id"`
	User      string    `json:"user"`
	Sentence  string    `json:"sentence"`
	Category  string    `json:"category"`
	Embedding []float64 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks field lengths. Non-numeric embeddings never reach this
// point because they fail JSON decoding into []float64.
func (s *SentenceRecord) Validate() error {
	if s.Embedding == nil {
		s.Embedding = []float64{}
	}
	return firstErr(
		maxLen("user", s.User, 64),
		maxLen("category", s.Category, 64),
	)
}

// Prompt task types.
const (
	TaskClassification = "classification"
	TaskGeneration     = "generation"
	TaskSummarization  = "summarization"
	TaskCustom         = "custom"
)

// DefaultPromptModel is the model recorded for new prompt configurations.
const DefaultPromptModel = "gpt-3.5-turbo"

// PromptConfiguration is a stored prompt for one task type.
type PromptConfiguration struct {
	ID        int64     `json:"id"`
	TaskType  string    `json:"task_type"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the task type, prompt and model.
func (p *PromptConfiguration) Validate() error {
	switch p.TaskType {
	case TaskClassification, TaskGeneration, TaskSummarization, TaskCustom:
	default:
		return invalid("task_type", "task_type must be one of classification, generation, summarization, custom")
	}
	return firstErr(
		required("prompt", p.Prompt),
		required("model", p.Model),
		maxLen("model", p.Model, 64),
	)
}

// ChatMessage is one turn of a chat session.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatSession is a conversation keyed by a caller-chosen session id.
type ChatSession struct {
	SessionID string        `json:"session_id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Validate checks the id, title and every message.
func (c *ChatSession) Validate() error {
	if c.Messages == nil {
		c.Messages = []ChatMessage{}
	}
	if err := firstErr(
		required("session_id", c.SessionID),
		maxLen("session_id", c.SessionID, 64),
		maxLen("title", c.Title, 200),
	); err != nil {
		return err
	}
	for _, m := range c.Messages {
		if m.Role == "" || m.Content == "" {
			return invalid("messages", "each message must contain role and content")
		}
		switch m.Role {
		case "user", "assistant", "system":
		default:
			return invalid("messages", "role must be user, assistant or system")
		}
	}
	return nil
}

// CategoryMemory remembers the category assigned to a configuration item.
// The (configuration_item, category) pair is unique.
type CategoryMemory struct {
	ID                int64     `json:"id"`
	ConfigurationItem string    `json:"configuration_item"`
	Category          string    `json:"category"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate trims and checks both fields.
func (m *CategoryMemory) Validate() error {
	m.ConfigurationItem = strings.TrimSpace(m.ConfigurationItem)
	m.Category = strings.TrimSpace(m.Category)
	return firstErr(
		required("configuration_item", m.ConfigurationItem),
		maxLen("configuration_item", m.ConfigurationItem, 200),
		required("category", m.Category),
		maxLen("category", m.Category, 100),
	)
}
