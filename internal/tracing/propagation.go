package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToAgent derives a context for one agent invocation. The trace ID
// and session ID carry over; the agent origin is stamped fresh so logs and
// spans attribute proposals to the right agent.
func PropagateToAgent(ctx context.Context, agentOrigin string) context.Context {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = NewTraceID()
	}

	newCtx := WithTraceID(ctx, traceID)
	newCtx = WithAgentOrigin(newCtx, agentOrigin)

	if sessionID := GetSessionID(ctx); sessionID != "" {
		newCtx = WithSessionID(newCtx, sessionID)
	}
	return newCtx
}

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.SessionID != "" {
		logger = logger.With().Str("session_id", tc.SessionID).Logger()
	}
	if tc.Stage != "" {
		logger = logger.With().Str("stage", tc.Stage).Logger()
	}
	if tc.AgentOrigin != "" {
		logger = logger.With().Str("agent_origin", tc.AgentOrigin).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}
