package recordsapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/c360studio/specgen/embedding"
	"github.com/c360studio/specgen/entity"
)

type sentenceRequest struct {
	User      *string    `json:"user"`
	Sentence  *string    `json:"sentence"`
	Category  *string    `json:"category"`
	Embedding *[]float64 `json:"embedding"`
}

func (req sentenceRequest) apply(s *entity.SentenceRecord) {
	s.User = trimmed(req.User, s.User)
	s.Category = trimmed(req.Category, s.Category)
	if req.Sentence != nil {
		if *req.Sentence != s.Sentence {
			s.Embedding = nil
		}
		s.Sentence = *req.Sentence
	}
	s.Embedding = or(req.Embedding, s.Embedding)
}

// embed fills an empty embedding when an embedder is configured. Failures
// are logged and the record is stored without one.
func (h *Handler) embed(ctx context.Context, s *entity.SentenceRecord) {
	if h.embedder == nil || len(s.Embedding) > 0 || strings.TrimSpace(s.Sentence) == "" {
		return
	}
	vec, err := h.embedder.Embed(ctx, s.Sentence)
	if err != nil {
		h.logger.Warn("Sentence embedding failed", "embedder", h.embedder.Name(), "error", err)
		return
	}
	s.Embedding = embedding.ToFloat64(vec)
}

func (h *Handler) handleSentences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		sentences, err := h.store.Sentences.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sentences": sentences})
	case http.MethodPost:
		var req sentenceRequest
		if !h.decode(w, r, &req) {
			return
		}
		s := &entity.SentenceRecord{}
		req.apply(s)
		if err := s.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		h.embed(ctx, s)
		if err := h.store.Sentences.Create(ctx, s); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusOK, s.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleSentence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		s, err := h.store.Sentences.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	case http.MethodPut:
		s, err := h.store.Sentences.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req sentenceRequest
		if !h.decode(w, r, &req) {
			return
		}
		req.apply(s)
		if err := s.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		h.embed(ctx, s)
		if err := h.store.Sentences.Update(ctx, s); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Sentences.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusOK)
	default:
		_, err := h.store.Sentences.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}

type promptRequest struct {
	TaskType *string `json:"task_type"`
	Prompt   *string `json:"prompt"`
	Model    *string `json:"model"`
}

func (req promptRequest) apply(p *entity.PromptConfiguration) {
	p.TaskType = trimmed(req.TaskType, p.TaskType)
	p.Prompt = or(req.Prompt, p.Prompt)
	p.Model = trimmed(req.Model, p.Model)
}

func (h *Handler) handlePrompts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		prompts, err := h.store.Prompts.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
	case http.MethodPost:
		var req promptRequest
		if !h.decode(w, r, &req) {
			return
		}
		p := &entity.PromptConfiguration{TaskType: entity.TaskCustom, Model: entity.DefaultPromptModel}
		req.apply(p)
		if err := p.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Prompts.Create(ctx, p); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusOK, p.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		p, err := h.store.Prompts.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		p, err := h.store.Prompts.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req promptRequest
		if !h.decode(w, r, &req) {
			return
		}
		req.apply(p)
		if err := p.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Prompts.Update(ctx, p); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Prompts.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusOK)
	default:
		_, err := h.store.Prompts.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}

type sessionRequest struct {
	SessionID *string               `json:"session_id"`
	Title     *string               `json:"title"`
	Messages  *[]entity.ChatMessage `json:"messages"`
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		sessions, err := h.store.Sessions.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	case http.MethodPost:
		var req sessionRequest
		if !h.decode(w, r, &req) {
			return
		}
		c := &entity.ChatSession{
			SessionID: trimmed(req.SessionID, ""),
			Title:     trimmed(req.Title, ""),
			Messages:  or(req.Messages, nil),
		}
		if err := c.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Sessions.Create(ctx, c); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"result": "created", "session_id": c.SessionID})
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		c, err := h.store.Sessions.Get(ctx, sessionID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		c, err := h.store.Sessions.Get(ctx, sessionID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req sessionRequest
		if !h.decode(w, r, &req) {
			return
		}
		c.Title = trimmed(req.Title, c.Title)
		c.Messages = or(req.Messages, c.Messages)
		if err := c.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Sessions.Update(ctx, c); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Sessions.Delete(ctx, sessionID); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusNoContent)
	default:
		_, err := h.store.Sessions.Get(ctx, sessionID)
		h.rejectMethod(w, r, err)
	}
}

type memoryRequest struct {
	ConfigurationItem *string `json:"configuration_item"`
	Category          *string `json:"category"`
}

func (h *Handler) handleMemories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		memories, err := h.store.Memories.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
	case http.MethodPost:
		var req memoryRequest
		if !h.decode(w, r, &req) {
			return
		}
		m := &entity.CategoryMemory{
			ConfigurationItem: or(req.ConfigurationItem, ""),
			Category:          or(req.Category, ""),
		}
		if err := m.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Memories.Create(ctx, m); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusCreated, m.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		m, err := h.store.Memories.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	case http.MethodPut:
		m, err := h.store.Memories.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req memoryRequest
		if !h.decode(w, r, &req) {
			return
		}
		m.ConfigurationItem = or(req.ConfigurationItem, m.ConfigurationItem)
		m.Category = or(req.Category, m.Category)
		if err := m.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Memories.Update(ctx, m); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.Memories.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusNoContent)
	default:
		_, err := h.store.Memories.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}
