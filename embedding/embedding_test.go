package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/config"
)

func TestNew_Disabled(t *testing.T) {
	e, err := New(context.Background(), config.EmbeddingConfig{})
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.EmbeddingConfig{Provider: "faiss"})
	assert.ErrorContains(t, err, "unknown embedding provider")
}

func TestNewGenAIEngine_RequiresKey(t *testing.T) {
	_, err := NewGenAIEngine(context.Background(), "", "", "")
	assert.ErrorContains(t, err, "API key")
}

func TestGenAIEngine_Embed(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.5,-0.25,1]}]}`))
	}))
	defer server.Close()

	e, err := New(context.Background(), config.EmbeddingConfig{
		Provider: "genai",
		APIKey:   "test-key",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "genai:text-embedding-004", e.Name())

	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
	assert.True(t, strings.HasSuffix(gotPath, ":batchEmbedContents"), gotPath)
	assert.Contains(t, gotPath, "text-embedding-004")
	assert.NotNil(t, gotBody["requests"])
}

func TestGenAIEngine_EmbedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	e, err := NewGenAIEngine(context.Background(), "k", "m", server.URL)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "GenAI embed failed")
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, []float64{0.5, -2}, ToFloat64([]float32{0.5, -2}))
	assert.Equal(t, []float64{}, ToFloat64(nil))
}
