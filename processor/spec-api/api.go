// Package specapi serves the specification pipeline over HTTP: the
// formulation, discovery and completion stages, idea expansion, field and
// prompt generation, the one-shot generator form, and a few fixed-response
// endpoints kept for client compatibility.
package specapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/c360studio/specgen/source/web"
	"github.com/c360studio/specgen/workflow"
)

// maxRequestBodySize limits POST bodies.
const maxRequestBodySize = 1 << 20

// SourceLoader fetches a specification from a URL.
type SourceLoader interface {
	Load(ctx context.Context, rawURL string) (*web.Document, error)
}

// Handler serves the pipeline endpoints.
type Handler struct {
	pipeline *workflow.Pipeline
	prompts  workflow.PromptLookup
	loader   SourceLoader
	logger   *slog.Logger
	maxBody  int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithSourceLoader enables spec_url on the formulation endpoint.
func WithSourceLoader(l SourceLoader) Option {
	return func(h *Handler) { h.loader = l }
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

// New creates a handler. lookup resolves stored prompts for gpt-generate.
func New(pipeline *workflow.Pipeline, lookup workflow.PromptLookup, opts ...Option) *Handler {
	h := &Handler{
		pipeline: pipeline,
		prompts:  lookup,
		logger:   slog.Default(),
		maxBody:  maxRequestBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterHTTPHandlers registers the endpoints under prefix:
//
//	GET|POST <prefix>
//	GET  <prefix>weight-config-page/
//	GET  <prefix>field-priority-page/
//	POST <prefix>formulation/
//	POST <prefix>discovery/
//	POST <prefix>generate_complete_result/
//	POST <prefix>llm-ideas/
//	POST <prefix>generate-field/
//	POST <prefix>gpt-generate/
//	POST <prefix>generate-specification/
//	POST <prefix>retry-ai/
//	POST <prefix>sentence-similarity/
func (h *Handler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	mux.HandleFunc(prefix+"{$}", h.handleGenerator)
	mux.HandleFunc(prefix+"weight-config-page/{$}", h.handleStaticPage("weight_config.html"))
	mux.HandleFunc(prefix+"field-priority-page/{$}", h.handleStaticPage("field_priority.html"))

	mux.HandleFunc(prefix+"formulation/{$}", h.handleFormulation)
	mux.HandleFunc(prefix+"discovery/{$}", h.handleDiscovery)
	mux.HandleFunc(prefix+"generate_complete_result/{$}", h.handleCompleteResult)
	mux.HandleFunc(prefix+"llm-ideas/{$}", h.handleIdeas)
	mux.HandleFunc(prefix+"generate-field/{$}", h.handleGenerateField)
	mux.HandleFunc(prefix+"gpt-generate/{$}", h.handleGPTGenerate)

	mux.HandleFunc(prefix+"generate-specification/{$}", h.handleGenerateSpecification)
	mux.HandleFunc(prefix+"retry-ai/{$}", h.handleRetryAI)
	mux.HandleFunc(prefix+"sentence-similarity/{$}", h.handleSentenceSimilarity)
}

// errInvalidJSON is reported for any body that does not decode.
var errInvalidJSON = errors.New("Invalid JSON")

// decode reads a JSON body into dst.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return errInvalidJSON
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return errors.New(typeErr.Field + " has the wrong type")
		}
		return errInvalidJSON
	}
	return nil
}

// requirePost writes 405 for anything but POST.
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure is the {"success": false} error shape of the pipeline stages.
func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
