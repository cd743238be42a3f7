package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPropagateToAgent(t *testing.T) {
	parentCtx := context.Background()
	parentCtx = WithTraceID(parentCtx, "trace-123")
	parentCtx = WithSessionID(parentCtx, "sess-abc")
	parentCtx = WithAgentOrigin(parentCtx, "orchestrator")

	childCtx := PropagateToAgent(parentCtx, "hotel_agent")

	// Trace and session carry over
	if GetTraceID(childCtx) != "trace-123" {
		t.Error("Trace ID not propagated")
	}
	if GetSessionID(childCtx) != "sess-abc" {
		t.Error("Session ID not propagated")
	}

	// Agent origin is restamped
	if GetAgentOrigin(childCtx) != "hotel_agent" {
		t.Error("Agent origin not updated")
	}

	// Parent context is untouched
	if GetAgentOrigin(parentCtx) != "orchestrator" {
		t.Error("Parent context mutated")
	}
}

func TestPropagateToAgentNoTraceID(t *testing.T) {
	childCtx := PropagateToAgent(context.Background(), "flight_agent")

	if GetTraceID(childCtx) == "" {
		t.Error("Trace ID not generated when missing")
	}
	if GetAgentOrigin(childCtx) != "flight_agent" {
		t.Error("Agent origin not set")
	}
}

func TestPropagateToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithStage(ctx, "reflect")

	enriched := PropagateToLogger(ctx, logger)
	enriched.Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{
		`"trace_id":"trace-1"`,
		`"session_id":"sess-1"`,
		`"stage":"reflect"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Log output missing %s: %s", want, out)
		}
	}
}

func TestLoggerFromContextEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := LoggerFromContext(context.Background(), logger)
	enriched.Info().Msg("plain")

	out := buf.String()
	if strings.Contains(out, "trace_id") {
		t.Errorf("Unexpected trace_id in output: %s", out)
	}
}
