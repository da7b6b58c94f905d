package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// defaultChunkSize is how many characters each streamed Ollama chunk carries.
const defaultChunkSize = 24

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	// Stream is only honoured on /api/chat. Ollama streams unless told not to.
	Stream *bool `json:"stream,omitempty"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ollamaChunk struct {
	Model           string      `json:"model"`
	CreatedAt       string      `json:"created_at"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

// capturedRequest is what /requests reports for each call.
type capturedRequest struct {
	API       string        `json:"api"`
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	CallIndex int           `json:"call_index"`
	Timestamp int64         `json:"timestamp"`
}

type server struct {
	fixtures  map[string][]string
	logger    *slog.Logger
	chunkSize int
	calls     atomic.Int64

	mu         sync.Mutex
	modelCalls map[string]int
	requests   map[string][]capturedRequest
}

func newServer(fixtures map[string][]string, logger *slog.Logger) *server {
	return &server{
		fixtures:   fixtures,
		logger:     logger,
		chunkSize:  defaultChunkSize,
		modelCalls: make(map[string]int),
		requests:   make(map[string][]capturedRequest),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/chat/completions", s.handleOpenAI)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("POST /api/chat", s.handleOllama)
	mux.HandleFunc("GET /api/tags", s.handleTags)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /requests", s.handleRequests)
	return mux
}

// reply picks the next fixture for the model and records the request.
// ok is false when neither the model nor the default has a fixture.
func (s *server) reply(api string, req chatRequest) (content string, ok bool) {
	seq, found := s.fixtures[fixtureKey(req.Model)]
	if !found {
		seq, found = s.fixtures[DefaultFixture]
	}

	s.mu.Lock()
	s.modelCalls[req.Model]++
	idx := s.modelCalls[req.Model]
	s.requests[req.Model] = append(s.requests[req.Model], capturedRequest{
		API:       api,
		Model:     req.Model,
		Messages:  req.Messages,
		CallIndex: idx,
		Timestamp: time.Now().UnixMilli(),
	})
	s.mu.Unlock()

	n := s.calls.Add(1)
	if !found {
		s.logger.Warn("No fixture for model", "call", n, "api", api, "model", req.Model)
		return "", false
	}
	if idx <= len(seq) {
		content = seq[idx-1]
	} else {
		content = seq[len(seq)-1]
	}
	s.logger.Info("Serving fixture", "call", n, "api", api, "model", req.Model,
		"call_index", idx, "sequence", len(seq), "bytes", len(content))
	return content, true
}

func (s *server) decode(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return req, false
	}
	return req, true
}

// ------------------------------------------------------------------
// POST /v1/chat/completions
// ------------------------------------------------------------------

func (s *server) handleOpenAI(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	content, ok := s.reply("openai", req)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]string{"message": fmt.Sprintf("no fixture for model %q", req.Model), "type": "invalid_request_error"},
		})
		return
	}

	prompt := promptTokens(req.Messages)
	completion := len(content) / 4
	writeJSON(w, http.StatusOK, openAIResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []openAIChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: openAIUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	})
}

// ------------------------------------------------------------------
// POST /api/chat
// ------------------------------------------------------------------

func (s *server) handleOllama(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	content, ok := s.reply("ollama", req)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("model %q not found", req.Model)})
		return
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	final := ollamaChunk{
		Model:           req.Model,
		CreatedAt:       now,
		Message:         chatMessage{Role: "assistant"},
		Done:            true,
		DoneReason:      "stop",
		PromptEvalCount: promptTokens(req.Messages),
		EvalCount:       len(content) / 4,
	}

	if req.Stream != nil && !*req.Stream {
		final.Message.Content = content
		writeJSON(w, http.StatusOK, final)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for _, part := range chunk(content, s.chunkSize) {
		_ = enc.Encode(ollamaChunk{
			Model:     req.Model,
			CreatedAt: now,
			Message:   chatMessage{Role: "assistant", Content: part},
		})
		if flusher != nil {
			flusher.Flush()
		}
	}
	_ = enc.Encode(final)
}

// chunk splits s into pieces of at most n bytes, never splitting a rune.
func chunk(s string, n int) []string {
	if n <= 0 || len(s) <= n {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var out []string
	start, size := 0, 0
	for i := range s {
		if size >= n {
			out = append(out, s[start:i])
			start, size = i, 0
		}
		size = i - start + 1
	}
	return append(out, s[start:])
}

func promptTokens(msgs []chatMessage) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n / 4
}

// ------------------------------------------------------------------
// Introspection
// ------------------------------------------------------------------

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) fixtureNames() []string {
	names := make([]string, 0, len(s.fixtures))
	for name := range s.fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	data := []entry{}
	for _, name := range s.fixtureNames() {
		data = append(data, entry{ID: name, Object: "model", OwnedBy: "mock-llm"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

func (s *server) handleTags(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	}
	models := []entry{}
	for _, name := range s.fixtureNames() {
		models = append(models, entry{Name: name, Model: name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	byModel := make(map[string]int, len(s.modelCalls))
	for m, n := range s.modelCalls {
		byModel[m] = n
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_model": byModel,
	})
}

// handleRequests returns captured requests, optionally filtered by the
// "model" and 1-indexed "call" query parameters.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	modelFilter := r.URL.Query().Get("model")
	callFilter, err := strconv.Atoi(r.URL.Query().Get("call"))
	if err != nil {
		callFilter = 0
	}

	s.mu.Lock()
	result := make(map[string][]capturedRequest)
	for m, reqs := range s.requests {
		if modelFilter != "" && m != modelFilter {
			continue
		}
		for _, req := range reqs {
			if callFilter == 0 || req.CallIndex == callFilter {
				result[m] = append(result[m], req)
			}
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"requests_by_model": result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
