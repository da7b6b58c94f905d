// Package indexapi exposes the knowledge-base index maintenance endpoints.
package indexapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/c360studio/specgen/vectorindex"
)

// Handler serves the index endpoints.
type Handler struct {
	manager *vectorindex.Manager
	logger  *slog.Logger
}

// New creates a handler over manager. A nil logger uses slog.Default.
func New(manager *vectorindex.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// RegisterHTTPHandlers registers:
//
//	GET  <prefix>faiss-index/status/
//	POST <prefix>faiss-index/rebuild/
//	POST <prefix>faiss-index/sync/
func (h *Handler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	mux.HandleFunc(prefix+"faiss-index/status/{$}", h.handleStatus)
	mux.HandleFunc(prefix+"faiss-index/rebuild/{$}", h.handleRebuild)
	mux.HandleFunc(prefix+"faiss-index/sync/{$}", h.handleSync)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	status, err := h.manager.Status()
	if err != nil {
		h.logger.Error("Index status failed", "dir", h.manager.Dir(), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	result, err := h.manager.Rebuild()
	if err != nil {
		h.logger.Error("Index rebuild failed", "dir", h.manager.Dir(), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("Index rebuilt", "dir", h.manager.Dir(), "files", result.FilesCreated)
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	result, err := h.manager.Sync(r.Context())
	if err != nil {
		h.logger.Error("Index sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
