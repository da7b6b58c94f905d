package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360studio/specgen/llm"
	_ "github.com/c360studio/specgen/llm/providers" // Register providers
	"github.com/c360studio/specgen/metric"
	"github.com/c360studio/specgen/model"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() llm.ClientOption {
	return llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        5 * time.Millisecond,
	})
}

func writeChatCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": "gpt-3.5-turbo",
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18},
	})
}

// singleEndpoint builds a registry where every capability maps to one openai endpoint.
func singleEndpoint(url string) *model.Registry {
	caps := make(map[model.Capability]*model.CapabilityConfig)
	for _, c := range model.AllCapabilities {
		caps[c] = &model.CapabilityConfig{Preferred: []string{"primary"}}
	}
	return model.NewRegistry(caps, map[string]*model.EndpointConfig{
		"primary": {Provider: "openai", URL: url, Model: "gpt-3.5-turbo", APIKey: "sk-test"},
	})
}

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		writeChatCompletion(w, "Table users {\n  id int [pk]\n}")
	}))
	defer server.Close()

	client := llm.NewClient(singleEndpoint(server.URL))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "spec",
		Messages:   []llm.Message{{Role: "user", Content: "Online bookstore"}},
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Table users")
	assert.Equal(t, "gpt-3.5-turbo", resp.Model)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)
}

func TestClient_Ask_TrimsReply(t *testing.T) {
	var gotMessages []llm.Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []llm.Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotMessages = body.Messages
		writeChatCompletion(w, "\n  Feature: Checkout  \n")
	}))
	defer server.Close()

	client := llm.NewClient(singleEndpoint(server.URL))

	out, err := client.Ask(context.Background(), model.CapabilitySpec, "Write Gherkin.", "")
	require.NoError(t, err)
	assert.Equal(t, "Feature: Checkout", out)
	require.Len(t, gotMessages, 2)
	assert.Equal(t, "system", gotMessages[0].Role)
	assert.Equal(t, "user", gotMessages[1].Role)
	assert.Equal(t, "", gotMessages[1].Content)
}

func TestClient_Complete_RetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("model loading"))
			return
		}
		writeChatCompletion(w, "Success after retries")
	}))
	defer server.Close()

	client := llm.NewClient(singleEndpoint(server.URL), fastRetry())

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "analysis",
		Messages:   []llm.Message{{Role: "user", Content: "Test"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Success after retries", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Complete_ErrorClassification(t *testing.T) {
	tests := []struct {
		status       int
		wantFatal    bool
		wantAttempts int32
	}{
		{http.StatusBadRequest, true, 1},
		{http.StatusUnauthorized, true, 1},
		{http.StatusForbidden, true, 1},
		{http.StatusNotFound, true, 1},
		{http.StatusTooManyRequests, false, 3},
		{http.StatusInternalServerError, false, 3},
		{http.StatusBadGateway, false, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := llm.NewClient(singleEndpoint(server.URL), fastRetry())
			_, err := client.Complete(context.Background(), llm.Request{
				Capability: "spec",
				Messages:   []llm.Message{{Role: "user", Content: "x"}},
			})

			require.Error(t, err)
			assert.Equal(t, tt.wantFatal, llm.IsFatal(err))
			assert.Equal(t, tt.wantFatal, !llm.IsTransient(err))
			assert.Equal(t, tt.wantAttempts, attempts.Load())
		})
	}
}

func TestClient_Complete_FallbackToOllama(t *testing.T) {
	var primaryAttempts, fallbackAttempts atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryAttempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackAttempts.Add(1)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "Bearer ollama-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"gpt-oss:120b","message":{"role":"assistant","content":"From "},"done":false}`)
		fmt.Fprintln(w, `{"model":"gpt-oss:120b","message":{"role":"assistant","content":"fallback"},"done":true,"eval_count":2}`)
	}))
	defer fallback.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityIdeation: {Preferred: []string{"openai"}, Fallback: []string{"ollama"}},
		},
		map[string]*model.EndpointConfig{
			"openai": {Provider: "openai", URL: primary.URL, Model: "gpt-3.5-turbo"},
			"ollama": {Provider: "ollama", URL: fallback.URL, Model: "gpt-oss:120b", APIKey: "ollama-key"},
		},
	)

	client := llm.NewClient(registry, llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       2,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        5 * time.Millisecond,
	}))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "ideation",
		Messages:   []llm.Message{{Role: "user", Content: "Test"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "From fallback", resp.Content)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, int32(2), primaryAttempts.Load())
	assert.Equal(t, int32(1), fallbackAttempts.Load())
}

func TestClient_Complete_PinnedEndpoint(t *testing.T) {
	var preferredHits atomic.Int32
	preferred := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		preferredHits.Add(1)
		writeChatCompletion(w, "preferred")
	}))
	defer preferred.Close()

	pinned := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer pinned.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityGeneral: {Preferred: []string{"ollama"}, Fallback: []string{"openai"}},
		},
		map[string]*model.EndpointConfig{
			"ollama": {Provider: "openai", URL: preferred.URL, Model: "gpt-3.5-turbo"},
			"openai": {Provider: "openai", URL: pinned.URL, Model: "gpt-4o-mini"},
		},
	)
	client := llm.NewClient(registry, llm.WithRetryConfig(llm.RetryConfig{MaxAttempts: 1}))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "general",
		Messages:   []llm.Message{{Role: "user", Content: "Test"}},
		Endpoint:   "openai",
	})

	require.Error(t, err)
	assert.Zero(t, preferredHits.Load(), "a pinned call must not fall back")
}

func TestClient_Complete_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := singleEndpoint(server.URL)
	registry.SetHealthConfig(model.HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenRequests: 1})

	client := llm.NewClient(registry, llm.WithRetryConfig(llm.RetryConfig{MaxAttempts: 1, BackoffMultiplier: 1}))
	req := llm.Request{Capability: "spec", Messages: []llm.Message{{Role: "user", Content: "x"}}}

	_, err := client.Complete(context.Background(), req)
	require.Error(t, err)

	_, err = client.Complete(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrNoEndpoints)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Complete_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := llm.NewClient(singleEndpoint(server.URL), fastRetry())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, llm.Request{
		Capability: "spec",
		Messages:   []llm.Message{{Role: "user", Content: "Test"}},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Complete_ValidationErrors(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())

	tests := []struct {
		name    string
		req     llm.Request
		wantErr string
	}{
		{
			name:    "empty capability",
			req:     llm.Request{Messages: []llm.Message{{Role: "user", Content: "hi"}}},
			wantErr: "capability is required",
		},
		{
			name:    "no messages",
			req:     llm.Request{Capability: "spec"},
			wantErr: "at least one message is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Complete(context.Background(), tt.req)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

type capturePublisher struct {
	records []llm.CallRecord
}

func (c *capturePublisher) Publish(_ context.Context, _ string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	var rec llm.CallRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	c.records = append(c.records, rec)
	return &jetstream.PubAck{}, nil
}

func TestClient_RecordsCallsAndMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChatCompletion(w, "ok")
	}))
	defer server.Close()

	pub := &capturePublisher{}
	store, err := llm.NewCallStore(pub)
	require.NoError(t, err)
	m := metric.New()

	client := llm.NewClient(singleEndpoint(server.URL), llm.WithCallStore(store), llm.WithMetrics(m))

	ctx := llm.WithTraceContext(context.Background(), llm.TraceContext{TraceID: "trace-9"})
	ctx = llm.WithStage(ctx, "formulation")
	_, err = client.Complete(ctx, llm.Request{
		Capability: "spec",
		Messages:   []llm.Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}},
	})
	require.NoError(t, err)

	require.Len(t, pub.records, 1)
	rec := pub.records[0]
	assert.Equal(t, "trace-9", rec.TraceID)
	assert.Equal(t, "formulation", rec.Stage)
	assert.Equal(t, "openai", rec.Provider)
	assert.Equal(t, 2, rec.MessagesCount)
	assert.Equal(t, "ok", rec.ResponsePreview)
	assert.Empty(t, rec.Error)

	count, err := testutil.GatherAndCount(m.Registry(), "specgen_llm_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
