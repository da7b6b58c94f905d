// Package embedding turns sentences into vectors for the sentence store.
package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/c360studio/specgen/config"
)

// Embedder generates a vector for one text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-004"

// New builds the configured embedder. It returns nil, nil when embeddings
// are disabled.
func New(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "genai":
		return NewGenAIEngine(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// GenAIEngine embeds text through the Gemini API.
type GenAIEngine struct {
	client *genai.Client
	model  string
}

// NewGenAIEngine creates a Gemini embedding engine. baseURL may be empty.
func NewGenAIEngine(ctx context.Context, apiKey, model, baseURL string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}

	return &GenAIEngine{client: client, model: model}, nil
}

// Embed returns the semantic-similarity embedding of text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// Name returns the engine name.
func (e *GenAIEngine) Name() string {
	return "genai:" + e.model
}

// ToFloat64 widens an embedding for JSON storage.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
