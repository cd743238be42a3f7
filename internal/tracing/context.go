package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// SessionIDKey is the context key for the planning session ID
	SessionIDKey ContextKey = "session_id"
	// StageKey is the context key for the orchestration stage
	StageKey ContextKey = "stage"
	// AgentOriginKey is the context key for the proposing agent
	AgentOriginKey ContextKey = "agent_origin"
)

// TraceContext holds tracing information carried through one request.
type TraceContext struct {
	TraceID     string
	SessionID   string
	Stage       string
	AgentOrigin string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSessionID adds a session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// WithStage adds an orchestration stage to the context
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithAgentOrigin adds the proposing agent to the context
func WithAgentOrigin(ctx context.Context, agentOrigin string) context.Context {
	return context.WithValue(ctx, AgentOriginKey, agentOrigin)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetSessionID retrieves the session ID from the context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// GetStage retrieves the orchestration stage from the context
func GetStage(ctx context.Context) string {
	if stage, ok := ctx.Value(StageKey).(string); ok {
		return stage
	}
	return ""
}

// GetAgentOrigin retrieves the proposing agent from the context
func GetAgentOrigin(ctx context.Context) string {
	if agentOrigin, ok := ctx.Value(AgentOriginKey).(string); ok {
		return agentOrigin
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:     GetTraceID(ctx),
		SessionID:   GetSessionID(ctx),
		Stage:       GetStage(ctx),
		AgentOrigin: GetAgentOrigin(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.SessionID != "" {
		ctx = WithSessionID(ctx, tc.SessionID)
	}
	if tc.Stage != "" {
		ctx = WithStage(ctx, tc.Stage)
	}
	if tc.AgentOrigin != "" {
		ctx = WithAgentOrigin(ctx, tc.AgentOrigin)
	}
	return ctx
}

// NewRequestContext creates a context for one inbound message with a fresh
// trace ID and the session it belongs to.
func NewRequestContext(ctx context.Context, sessionID string) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	return WithSessionID(ctx, sessionID)
}
