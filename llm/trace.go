package llm

import "context"

// TraceContext holds correlation information carried on a request context.
type TraceContext struct {
	TraceID string
	Stage   string
}

type traceContextKey struct{}

// WithTraceContext adds trace information to a context.
func WithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// WithStage returns ctx with the pipeline stage set, keeping any trace ID.
func WithStage(ctx context.Context, stage string) context.Context {
	tc := GetTraceContext(ctx)
	tc.Stage = stage
	return WithTraceContext(ctx, tc)
}

// GetTraceContext extracts trace information from a context.
func GetTraceContext(ctx context.Context) TraceContext {
	if tc, ok := ctx.Value(traceContextKey{}).(TraceContext); ok {
		return tc
	}
	return TraceContext{}
}
