package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestTracerProvider installs a TracerProvider with an in-memory exporter
// as the global provider so recorded spans can be inspected.
func newTestTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// attrValue looks up a recorded span attribute by key.
func attrValue(s tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range s.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestCorrelationID_EmptyByDefault(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}

func TestCorrelationID_ReturnsTraceID(t *testing.T) {
	newTestTracerProvider(t)

	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Errorf("correlation ID length = %d, want 32", len(cid))
	}
}

func TestStartSpan_CreatesSpan(t *testing.T) {
	exp := newTestTracerProvider(t)

	ctx, span := StartSpan(context.Background(), "pipeline step")
	if CorrelationID(ctx) == "" {
		t.Error("StartSpan did not create a span with a trace ID")
	}

	span.End()
	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	if spans[0].Name != "pipeline step" {
		t.Errorf("span name = %q", spans[0].Name)
	}
}

func TestStartTranscription_RecordsSession(t *testing.T) {
	exp := newTestTracerProvider(t)

	_, span := StartTranscription(context.Background(), "sess-1")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "transcribe chunk" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	got, ok := attrValue(spans[0], "session.id")
	if !ok || got.AsString() != "sess-1" {
		t.Errorf("session.id attribute = %v (present=%v), want sess-1", got.AsString(), ok)
	}
}

func TestStartAnswer_RecordsQuestionSize(t *testing.T) {
	exp := newTestTracerProvider(t)

	_, span := StartAnswer(context.Background(), "sess-1", 42)
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "answer question" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if got, ok := attrValue(spans[0], "session.id"); !ok || got.AsString() != "sess-1" {
		t.Errorf("session.id attribute = %v (present=%v), want sess-1", got.AsString(), ok)
	}
	if got, ok := attrValue(spans[0], "question.chars"); !ok || got.AsInt64() != 42 {
		t.Errorf("question.chars attribute = %v (present=%v), want 42", got.AsInt64(), ok)
	}
}
