package specapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/c360studio/specgen/similarity"
)

// These endpoints return fixed or locally computed results. They keep the
// {"status", "error"} envelope their clients expect.

func writeStatusError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": "error", "error": msg})
}

// ----------------------------------------------------------------------------
// POST /generate-specification/
// ----------------------------------------------------------------------------

func (h *Handler) handleGenerateSpecification(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload map[string]any
	if err := h.decode(w, r, &payload); err != nil {
		writeStatusError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, orderID, params := payload["user_id"], payload["order_id"], payload["spec_params"]
	if userID == nil || orderID == nil || params == nil {
		writeStatusError(w, http.StatusBadRequest, "missing required parameters: user_id, order_id, spec_params")
		return
	}
	if _, ok := params.(map[string]any); !ok {
		writeStatusError(w, http.StatusBadRequest, "spec_params must be a JSON object")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"error":  nil,
		"specification": map[string]any{
			"user_id":   userID,
			"order_id":  orderID,
			"params":    params,
			"generated": true,
		},
	})
}

// ----------------------------------------------------------------------------
// POST /retry-ai/
// ----------------------------------------------------------------------------

// Task ids at or above maxTaskID do not exist; negative ids simulate a
// failing AI service.
const maxTaskID = 100

type retryRequest struct {
	TaskID *float64 `json:"task_id"`
}

func (h *Handler) handleRetryAI(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req retryRequest
	if err := h.decode(w, r, &req); err != nil {
		writeStatusError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TaskID == nil {
		writeStatusError(w, http.StatusBadRequest, "missing required parameter: task_id")
		return
	}

	id := *req.TaskID
	switch {
	case id >= maxTaskID:
		writeStatusError(w, http.StatusNotFound, "Task "+formatNumber(id)+" not found")
	case id < 0:
		writeStatusError(w, http.StatusInternalServerError, "AI service internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "success",
			"error":        nil,
			"task_id":      jsonNumber(id),
			"retry_result": "completed",
		})
	}
}

// jsonNumber keeps integral ids integral in the response.
func jsonNumber(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ----------------------------------------------------------------------------
// POST /sentence-similarity/
// ----------------------------------------------------------------------------

type similarityRequest struct {
	Sentence1 string   `json:"sentence1"`
	Sentence2 string   `json:"sentence2"`
	Threshold *float64 `json:"threshold"`
}

// similarityNote tells clients the score is a stand-in for a sentence
// embedding model.
const similarityNote = "word-overlap stand-in; a paraphrase embedding model would replace it"

func (h *Handler) handleSentenceSimilarity(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req similarityRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s1, s2 := strings.TrimSpace(req.Sentence1), strings.TrimSpace(req.Sentence2)
	if s1 == "" || s2 == "" {
		writeError(w, http.StatusBadRequest, "missing required parameters: sentence1, sentence2")
		return
	}

	threshold := similarity.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	score := similarity.Jaccard(s1, s2)

	writeJSON(w, http.StatusOK, map[string]any{
		"sentence1":  s1,
		"sentence2":  s2,
		"similarity": score,
		"threshold":  threshold,
		"is_similar": score >= threshold,
		"method":     similarity.Method,
		"note":       similarityNote,
	})
}
