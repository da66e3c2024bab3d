package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the Earshot tracer.
const tracerName = "github.com/earshot-ai/earshot"

// Tracer returns the package-level [trace.Tracer] for Earshot. It uses the
// globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartTranscription starts the span covering one audio chunk's trip through
// the transcriber.
func StartTranscription(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "transcribe chunk",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
}

// StartAnswer starts the span covering answer generation for one committed
// question.
func StartAnswer(ctx context.Context, sessionID string, questionChars int) (context.Context, trace.Span) {
	return StartSpan(ctx, "answer question",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("question.chars", questionChars),
		))
}

// CorrelationID extracts the trace ID from the OTel span context in ctx.
// Returns the empty string when no active span with a valid trace ID exists.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
