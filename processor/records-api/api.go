// Package recordsapi serves JSON CRUD endpoints over the auxiliary tables:
// users and orders, weight configurations and tickets, field priorities,
// prompt configurations, sentences, sync paths, chat sessions, category
// memories and uploaded-file records.
//
// Paths keep their trailing slash. Unsupported methods get 405 with a JSON
// body rather than the mux's plain-text reply.
package recordsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/c360studio/specgen/embedding"
	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/storage"
)

// DefaultMaxBodyBytes limits request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Handler serves the record endpoints.
type Handler struct {
	store    *storage.Store
	embedder embedding.Embedder
	logger   *slog.Logger
	maxBody  int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithEmbedder fills empty sentence embeddings with e.
func WithEmbedder(e embedding.Embedder) Option {
	return func(h *Handler) { h.embedder = e }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithMaxBodyBytes sets the request body limit.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// New creates a handler over store.
func New(store *storage.Store, opts ...Option) *Handler {
	h := &Handler{
		store:   store,
		logger:  slog.Default(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterHTTPHandlers registers every record endpoint under prefix
// (for example "/" or "/api/").
//
//	/user/  /user/{id}/
//	/order/  /order/{id}/
//	/weight-config/  /weight-config/{id}/
//	/ticket/  /ticket/{id}/
//	/field-priority/  /field-priority/{id}/
//	/sentence-db/  /sentence-db/{id}/
//	/gpt-prompt/  /gpt-prompt/{id}/
//	/sync-path/  /sync-path/{id}/
//	/chat-session/  /chat-session/{session_id}/
//	/category-memory/  /category-memory/{id}/
//	/uploaded-file/  /uploaded-file/{id}/
func (h *Handler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	routes := []struct {
		name   string
		list   http.HandlerFunc
		detail http.HandlerFunc
		param  string
	}{
		{"user", h.handleUsers, h.handleUser, "id"},
		{"order", h.handleOrders, h.handleOrder, "id"},
		{"weight-config", h.handleWeightConfigs, h.handleWeightConfig, "id"},
		{"ticket", h.handleTickets, h.handleTicket, "id"},
		{"field-priority", h.handleFieldPriorities, h.handleFieldPriority, "id"},
		{"sentence-db", h.handleSentences, h.handleSentence, "id"},
		{"gpt-prompt", h.handlePrompts, h.handlePrompt, "id"},
		{"sync-path", h.handleSyncPaths, h.handleSyncPath, "id"},
		{"chat-session", h.handleSessions, h.handleSession, "session_id"},
		{"category-memory", h.handleMemories, h.handleMemory, "id"},
		{"uploaded-file", h.handleUploads, h.handleUpload, "id"},
	}
	for _, rt := range routes {
		mux.HandleFunc(prefix+rt.name+"/{$}", rt.list)
		mux.HandleFunc(prefix+rt.name+"/{"+rt.param+"}/{$}", rt.detail)
	}
}

// pathID parses the {id} path value. Malformed ids are treated as missing rows.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeNotFound(w)
		return 0, false
	}
	return id, true
}

// decode reads a JSON body into dst, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, decodeMessage(err))
		return false
	}
	return true
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Sprintf("%s has the wrong type: expected %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &maxErr):
		return fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)
	case errors.Is(err, io.EOF):
		return "Invalid JSON: empty body"
	default:
		return "Invalid JSON"
	}
}

// fail maps a storage or validation error to a response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *entity.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, storage.ErrNotFound):
		writeNotFound(w)
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusBadRequest, "a record with the same unique value already exists")
	default:
		h.logger.Error("Record request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not found")
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// rejectMethod answers an unsupported method on a detail route. lookupErr is
// the result of fetching the row, so a missing row still reports 404.
func (h *Handler) rejectMethod(w http.ResponseWriter, r *http.Request, lookupErr error) {
	if lookupErr != nil {
		h.fail(w, r, lookupErr)
		return
	}
	writeMethodNotAllowed(w)
}

// writeCreated reports a new row. Some resources answer 200, others 201.
func writeCreated(w http.ResponseWriter, status int, id int64) {
	writeJSON(w, status, map[string]any{"result": "created", "id": id})
}

func writeUpdated(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}

// writeDeleted answers a delete either with 200 and a body or 204 without one.
func writeDeleted(w http.ResponseWriter, status int) {
	if status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, map[string]string{"result": "deleted"})
}

// or returns *p when set, else fallback.
func or[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}

// trimmed is or for strings, trimming the result.
func trimmed(p *string, fallback string) string {
	return strings.TrimSpace(or(p, fallback))
}
