package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// CallSubjectPrefix prefixes the JetStream subject records are published on.
// The capability is appended, e.g. "specgen.llm.calls.spec".
const CallSubjectPrefix = "specgen.llm.calls"

// previewLen bounds ResponsePreview.
const previewLen = 500

// CallRecord describes a single LLM completion for auditing and cost tracking.
type CallRecord struct {
	RequestID string `json:"request_id"`

	// TraceID correlates calls made while serving one HTTP request.
	TraceID string `json:"trace_id,omitempty"`

	// Stage is the pipeline stage that made the call (formulation, discovery, ...).
	Stage string `json:"stage,omitempty"`

	Capability string `json:"capability"`
	Model      string `json:"model"`
	Provider   string `json:"provider"`

	MessagesCount    int    `json:"messages_count"`
	ResponsePreview  string `json:"response_preview,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	FinishReason     string `json:"finish_reason,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	Error         string   `json:"error,omitempty"`
	Retries       int      `json:"retries"`
	FallbacksUsed []string `json:"fallbacks_used,omitempty"`
}

// Publisher is the subset of jetstream.JetStream used by CallStore.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// CallStore publishes call records to JetStream.
type CallStore struct {
	js     Publisher
	logger *slog.Logger
}

// CallStoreOption configures a CallStore.
type CallStoreOption func(*CallStore)

// WithStoreLogger sets the logger for the call store.
func WithStoreLogger(logger *slog.Logger) CallStoreOption {
	return func(s *CallStore) {
		s.logger = logger
	}
}

// NewCallStore creates a call store on top of a JetStream publisher.
func NewCallStore(js Publisher, opts ...CallStoreOption) (*CallStore, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream publisher required")
	}

	s := &CallStore{
		js:     js,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ConnectCallStore dials NATS, ensures the stream exists and returns a store.
// The returned close function drains the connection.
func ConnectCallStore(ctx context.Context, url, stream string, opts ...CallStoreOption) (*CallStore, func(), error) {
	nc, err := nats.Connect(url,
		nats.Name("specgen"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{CallSubjectPrefix + ".>"},
		MaxAge:   7 * 24 * time.Hour,
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("ensure stream %s: %w", stream, err)
	}

	store, err := NewCallStore(js, opts...)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := nc.Drain(); err != nil {
			store.logger.Warn("NATS drain failed", "error", err)
		}
	}
	return store, closeFn, nil
}

// Store publishes a call record.
func (s *CallStore) Store(ctx context.Context, record *CallRecord) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if record.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	subject := CallSubjectPrefix + "." + subjectToken(record.Capability)
	if _, err := s.js.Publish(ctx, subject, data, jetstream.WithMsgID(record.RequestID)); err != nil {
		return fmt.Errorf("publish call record: %w", err)
	}

	s.logger.Debug("Published LLM call record",
		"request_id", record.RequestID,
		"trace_id", record.TraceID,
		"capability", record.Capability,
		"subject", subject)
	return nil
}

// subjectToken makes a capability safe to use as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "unknown"
	}
	out := []byte(s)
	for i, c := range out {
		switch c {
		case '.', '*', '>', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen]
}
