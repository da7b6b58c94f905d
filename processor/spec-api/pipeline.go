package specapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/source/weburl"
	"github.com/c360studio/specgen/storage"
	"github.com/c360studio/specgen/workflow"
)

// ----------------------------------------------------------------------------
// POST /formulation/
// ----------------------------------------------------------------------------

// FormulationRequest is the body of POST /formulation/. SpecURL is used
// only when SpecText is blank.
type FormulationRequest struct {
	SpecText string `json:"spec_text"`
	SpecURL  string `json:"spec_url,omitempty"`
}

func (h *Handler) handleFormulation(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req FormulationRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	specText := strings.TrimSpace(req.SpecText)
	if specText == "" && strings.TrimSpace(req.SpecURL) != "" {
		if h.loader == nil {
			writeError(w, http.StatusBadRequest, "spec_url is not enabled on this server")
			return
		}
		doc, err := h.loader.Load(r.Context(), req.SpecURL)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, weburl.ErrScheme) || errors.Is(err, weburl.ErrBlockedHost) {
				status = http.StatusBadRequest
			}
			h.logger.Warn("Spec source load failed", "url", req.SpecURL, "error", err)
			writeFailure(w, status, "load spec_url: "+err.Error())
			return
		}
		specText = doc.Markdown
	}
	if specText == "" {
		writeError(w, http.StatusBadRequest, "spec_text is required")
		return
	}

	result, err := h.pipeline.Formulate(r.Context(), specText)
	if err != nil {
		h.logger.Error("Formulation failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "formulation failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"dbml":    result.DBML,
		"gherkin": result.Gherkin,
	})
}

// ----------------------------------------------------------------------------
// POST /discovery/ and POST /generate_complete_result/
// ----------------------------------------------------------------------------

// ModelRequest carries a formulated data and functional model.
type ModelRequest struct {
	DBML    string `json:"dbml"`
	Gherkin string `json:"gherkin"`
}

func (req ModelRequest) empty() bool {
	return strings.TrimSpace(req.DBML) == "" || strings.TrimSpace(req.Gherkin) == ""
}

func (h *Handler) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req ModelRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.empty() {
		writeError(w, http.StatusBadRequest, "dbml and gherkin are required")
		return
	}

	result, err := h.pipeline.Discover(r.Context(), req.DBML, req.Gherkin)
	if err != nil {
		var de *workflow.DecodeError
		if errors.As(err, &de) {
			h.logger.Warn("Discovery reply was not JSON", "error", de.Err)
			writeFailure(w, http.StatusInternalServerError, de.Error())
			return
		}
		h.logger.Error("Discovery failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "discovery failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"items":      result.Items,
		"statistics": result.Statistics,
	})
}

func (h *Handler) handleCompleteResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}
	var req ModelRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.empty() {
		writeFailure(w, http.StatusBadRequest, "dbml and gherkin are both required")
		return
	}

	result, err := h.pipeline.Complete(r.Context(), req.DBML, req.Gherkin)
	if err != nil {
		h.logger.Error("Complete result generation failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "complete result generation failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"background": result.Background,
		"goals":      result.Goals,
		"flowchart":  result.Flowchart,
		"api_spec":   result.APISpec,
	})
}

// ----------------------------------------------------------------------------
// POST /llm-ideas/ and POST /generate-field/
// ----------------------------------------------------------------------------

type ideasRequest struct {
	Idea string `json:"idea"`
}

func (h *Handler) handleIdeas(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req ideasRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Idea) == "" {
		writeError(w, http.StatusBadRequest, "idea is required")
		return
	}

	ideas, err := h.pipeline.Ideas(r.Context(), req.Idea)
	if err != nil {
		h.logger.Error("Idea expansion failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ideas":   ideas,
		"method":  workflow.IdeasMethod,
	})
}

type fieldRequest struct {
	Field  string `json:"field"`
	Idea   string `json:"idea"`
	Prompt string `json:"prompt"`
}

func (h *Handler) handleGenerateField(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req fieldRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case strings.TrimSpace(req.Idea) == "":
		writeError(w, http.StatusBadRequest, "idea is required")
		return
	case strings.TrimSpace(req.Prompt) == "":
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	content, err := h.pipeline.GenerateField(r.Context(), req.Idea, req.Prompt)
	if err != nil {
		h.logger.Error("Field generation failed", "field", req.Field, "error", err)
		writeFailure(w, http.StatusInternalServerError, "generation failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"field":   req.Field,
		"content": content,
	})
}

// ----------------------------------------------------------------------------
// POST /gpt-generate/
// ----------------------------------------------------------------------------

func (h *Handler) handleGPTGenerate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req workflow.GenerateRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	result, err := h.pipeline.GPTGenerate(r.Context(), h.prompts, req)
	if errors.Is(err, storage.ErrNotFound) {
		taskType := req.TaskType
		if taskType == "" {
			taskType = entity.TaskCustom
		}
		writeError(w, http.StatusNotFound, "no prompt configuration for task_type="+taskType)
		return
	}
	if err != nil {
		h.logger.Error("Prompt generation failed", "task_type", req.TaskType, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
