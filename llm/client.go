// Package llm provides a provider-agnostic LLM client with retry and fallback support.
// It integrates with the model.Registry for capability-based model selection.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/specgen/metric"
	"github.com/c360studio/specgen/model"
	"github.com/google/uuid"
)

// maxResponseSize limits the LLM response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Completer is implemented by anything that can answer a completion request.
// Pipeline code depends on this rather than on *Client.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client is a provider-agnostic LLM client with retry and fallback support.
type Client struct {
	registry    *model.Registry
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
	metrics     *metric.Metrics

	// callStore optionally publishes call records. Nil disables recording.
	callStore *CallStore
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// Request defines an LLM completion request.
type Request struct {
	// Capability specifies the semantic capability ("spec", "analysis", ...).
	// The registry resolves this to available models.
	Capability string

	// Messages is the chat history to send to the LLM.
	Messages []Message

	// Temperature controls randomness. nil uses endpoint default, 0 is deterministic.
	Temperature *float64

	// MaxTokens limits response length. 0 uses endpoint default.
	MaxTokens int

	// Endpoint pins the call to one registry endpoint. The capability's
	// fallback chain is not consulted when it is set.
	Endpoint string
}

// TokenUsage represents token consumption details for an LLM call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the LLM completion result.
type Response struct {
	// RequestID uniquely identifies this LLM call.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the actual model that was used.
	Model string

	// Provider is the provider that served the call.
	Provider string

	// Usage contains token consumption metrics.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.httpClient.Timeout = d
		}
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithMetrics records call counts and latency.
func WithMetrics(m *metric.Metrics) ClientOption {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithCallStore publishes a record of every call.
func WithCallStore(store *CallStore) ClientOption {
	return func(client *Client) {
		client.callStore = store
	}
}

// NewClient creates a new LLM client with the given model registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry:    registry,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Registry returns the model registry the client resolves capabilities against.
func (c *Client) Registry() *model.Registry {
	return c.registry
}

// Complete sends a completion request, handling retry and fallback logic.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Capability == "" {
		return nil, fmt.Errorf("capability is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	requestID := uuid.New().String()
	startedAt := time.Now()
	traceCtx := GetTraceContext(ctx)

	capVal := model.ParseCapability(req.Capability)
	if capVal == "" {
		capVal = model.CapabilityGeneral
	}
	chain := c.registry.GetAvailableFallbackChain(capVal)
	if req.Endpoint != "" {
		chain = []string{req.Endpoint}
	}

	record := &CallRecord{
		RequestID:     requestID,
		TraceID:       traceCtx.TraceID,
		Stage:         traceCtx.Stage,
		Capability:    req.Capability,
		MessagesCount: len(req.Messages),
		StartedAt:     startedAt,
	}

	var lastErr error
	var fallbacksUsed []string
	var retries int

	for _, modelName := range chain {
		endpoint := c.registry.GetEndpoint(modelName)
		if endpoint == nil {
			c.logger.Debug("No endpoint for model, skipping", "model", modelName)
			continue
		}

		if !c.registry.IsEndpointAvailable(modelName) {
			c.logger.Debug("Endpoint circuit open, skipping", "model", modelName)
			continue
		}

		resp, attempts, err := c.tryEndpoint(ctx, endpoint, modelName, req)
		retries += attempts - 1

		if err == nil {
			resp.RequestID = requestID
			resp.Provider = endpoint.Provider

			record.Model = resp.Model
			record.Provider = endpoint.Provider
			record.ResponsePreview = preview(resp.Content)
			record.PromptTokens = resp.Usage.PromptTokens
			record.CompletionTokens = resp.Usage.CompletionTokens
			record.TotalTokens = resp.Usage.TotalTokens
			record.FinishReason = resp.FinishReason
			record.Retries = retries
			record.FallbacksUsed = fallbacksUsed
			c.finish(ctx, record, "success")

			return resp, nil
		}

		fallbacksUsed = append(fallbacksUsed, modelName)
		lastErr = err

		c.logger.Warn("Endpoint failed, trying fallback",
			"model", modelName,
			"provider", endpoint.Provider,
			"error", err)

		if IsFatal(err) || ctx.Err() != nil {
			c.logger.Warn("Not trying fallbacks", "error", err)

			record.Model = endpoint.Model
			record.Provider = endpoint.Provider
			record.Error = err.Error()
			record.Retries = retries
			record.FallbacksUsed = fallbacksUsed
			c.finish(ctx, record, "error")

			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = ErrNoEndpoints
	}

	record.Error = fmt.Sprintf("all endpoints failed: %v", lastErr)
	record.Retries = retries
	record.FallbacksUsed = fallbacksUsed
	c.finish(ctx, record, "error")

	return nil, fmt.Errorf("all endpoints failed for capability %s: %w", req.Capability, lastErr)
}

// Ask sends a system prompt and a user message and returns the trimmed reply.
// An empty user message is sent as-is.
func (c *Client) Ask(ctx context.Context, capability model.Capability, system, user string) (string, error) {
	return Ask(ctx, c, capability, system, user)
}

// Ask is the Completer form of Client.Ask.
func Ask(ctx context.Context, c Completer, capability model.Capability, system, user string) (string, error) {
	resp, err := c.Complete(ctx, Request{
		Capability: capability.String(),
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// finish stamps timing on the record, updates metrics and publishes it.
// Publishing failures are logged and never affect the call.
func (c *Client) finish(ctx context.Context, record *CallRecord, outcome string) {
	record.CompletedAt = time.Now()
	elapsed := record.CompletedAt.Sub(record.StartedAt)
	record.DurationMs = elapsed.Milliseconds()

	c.metrics.ObserveLLMCall(record.Capability, record.Provider, outcome, elapsed, record.TotalTokens)

	if c.callStore == nil {
		return
	}
	// The request context may already be cancelled when a call fails.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.callStore.Store(storeCtx, record); err != nil {
		c.logger.Warn("Failed to record LLM call",
			"request_id", record.RequestID,
			"trace_id", record.TraceID,
			"capability", record.Capability,
			"error", err)
	}
}

// tryEndpoint attempts a request with retry logic and returns the attempt count.
func (c *Client) tryEndpoint(ctx context.Context, ep *model.EndpointConfig, modelName string, req Request) (*Response, int, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, ep, req)
		if err == nil {
			c.registry.MarkEndpointSuccess(modelName)
			return resp, attempt, nil
		}

		lastErr = err

		// Fatal errors point at configuration, not endpoint health.
		if IsFatal(err) {
			return nil, attempt, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, attempt, err
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.retryConfig.Backoff(attempt)
			c.logger.Debug("Request failed, retrying",
				"attempt", attempt,
				"max_attempts", c.retryConfig.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	c.registry.MarkEndpointFailure(modelName)

	return nil, c.retryConfig.MaxAttempts, lastErr
}

// doRequest executes a single HTTP request to the LLM endpoint.
func (c *Client) doRequest(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	url := provider.BuildURL(ep.URL)

	temperature := req.Temperature
	if temperature == nil {
		temperature = ep.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = ep.MaxTokens
	}

	body, err := provider.BuildRequestBody(ep.Model, req.Messages, temperature, maxTokens)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("Sending LLM request",
		"provider", ep.Provider,
		"model", ep.Model,
		"url", url,
		"messages", len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq, ep.Key())

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	resp, err := provider.ParseResponse(respBody, ep.Model)
	if err != nil {
		return nil, NewTransientError(err)
	}
	if resp.Model == "" {
		resp.Model = ep.Model
	}
	return resp, nil
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("LLM API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	default:
		// 400, 401, 403 and anything unexpected will not improve on retry.
		return NewFatalError(err)
	}
}
