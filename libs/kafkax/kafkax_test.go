package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
}

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "booking.appointment.requested.v1", Key: []byte("appt-1")})
	if meta.EventID != "appt-1" || meta.EventType != "booking.appointment.requested.v1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestNewEventMessageCarriesMetaAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := NewEventMessage(ctx, EventMeta{EventID: "evt-1", EventType: "booking.appointment.requested.v1"}, "appt-1", []byte(`{}`))
	if msg.Topic != "booking.appointment.requested.v1" || string(msg.Key) != "appt-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if got := ExtractEventMeta(msg); got.EventID != "evt-1" {
		t.Fatalf("unexpected event id %q", got.EventID)
	}
	if HeaderValue(msg.Headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header")
	}

	restored := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	if restored.TraceID() != traceID {
		t.Fatalf("trace id not restored: %v", restored.TraceID())
	}
}

func TestStartConsumeSpanContinuesTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	producer := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))
	msg := NewEventMessage(producer, EventMeta{EventID: "evt-1", EventType: "t"}, "k", nil)

	ctx, span := StartConsumeSpan(context.Background(), msg)
	defer span.End()
	// The global no-op tracer propagates the remote parent unchanged.
	if got := trace.SpanContextFromContext(ctx).TraceID(); got != traceID {
		t.Fatalf("consumer span lost the producer trace: %v", got)
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatalf("expected an error without brokers")
	}
}
