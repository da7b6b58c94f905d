package recordsapi

import (
	"net/http"

	"github.com/c360studio/specgen/entity"
)

type syncPathRequest struct {
	Name *string `json:"name"`
	Path *string `json:"path"`
}

func (h *Handler) handleSyncPaths(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		paths, err := h.store.SyncPaths.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
	case http.MethodPost:
		var req syncPathRequest
		if !h.decode(w, r, &req) {
			return
		}
		s := &entity.SyncPath{Name: trimmed(req.Name, ""), Path: trimmed(req.Path, "")}
		if err := s.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.SyncPaths.Create(ctx, s); err != nil {
			h.fail(w, r, err)
			return
		}
		writeCreated(w, http.StatusCreated, s.ID)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) handleSyncPath(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		s, err := h.store.SyncPaths.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	case http.MethodPut:
		s, err := h.store.SyncPaths.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var req syncPathRequest
		if !h.decode(w, r, &req) {
			return
		}
		s.Name = trimmed(req.Name, s.Name)
		s.Path = trimmed(req.Path, s.Path)
		if err := s.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.SyncPaths.Update(ctx, s); err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpdated(w)
	case http.MethodDelete:
		if err := h.store.SyncPaths.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusNoContent)
	default:
		_, err := h.store.SyncPaths.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}

type uploadRequest struct {
	Filename       *string `json:"filename"`
	StoredFilename *string `json:"stored_filename"`
	FileSize       *int64  `json:"file_size"`
	FilePath       *string `json:"file_path"`
}

func (h *Handler) handleUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		files, err := h.store.Uploads.List(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": files})
	case http.MethodPost:
		var req uploadRequest
		if !h.decode(w, r, &req) {
			return
		}
		u := &entity.UploadedFile{
			Filename:       trimmed(req.Filename, ""),
			StoredFilename: trimmed(req.StoredFilename, ""),
			FileSize:       or(req.FileSize, 0),
			FilePath:       trimmed(req.FilePath, entity.DefaultUploadPath),
		}
		if err := u.Validate(); err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.store.Uploads.Create(ctx, u); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"result":          "created",
			"id":              u.ID,
			"stored_filename": u.StoredFilename,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

// Upload records are immutable; only GET and DELETE are served.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		u, err := h.store.Uploads.Get(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case http.MethodDelete:
		if err := h.store.Uploads.Delete(ctx, id); err != nil {
			h.fail(w, r, err)
			return
		}
		writeDeleted(w, http.StatusNoContent)
	default:
		_, err := h.store.Uploads.Get(ctx, id)
		h.rejectMethod(w, r, err)
	}
}
