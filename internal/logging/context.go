package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores the request ID for loggers bound with WithContext
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID stored in ctx, if any
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// contextFields returns request_id, trace_id and span_id when present
func contextFields(ctx context.Context) []LogField {
	if ctx == nil {
		return nil
	}

	var fields []LogField
	if id := RequestID(ctx); id != "" {
		fields = append(fields, Field("request_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			Field("trace_id", sc.TraceID().String()),
			Field("span_id", sc.SpanID().String()),
		)
	}
	return fields
}
