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
	// RunIDKey is the context key for the evaluation run ID
	RunIDKey ContextKey = "run_id"
	// TaskIDKey is the context key for the task being orchestrated
	TaskIDKey ContextKey = "task_id"
	// AgentIDKey is the context key for the worker agent handling a subtask
	AgentIDKey ContextKey = "agent_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID string
	RunID   string
	TaskID  string
	AgentID string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewRunID generates a new run ID
func NewRunID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithTaskID adds a task ID to the context
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, TaskIDKey, taskID)
}

// WithAgentID adds an agent ID to the context
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

func value(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string { return value(ctx, TraceIDKey) }

// GetRunID retrieves the run ID from the context
func GetRunID(ctx context.Context) string { return value(ctx, RunIDKey) }

// GetTaskID retrieves the task ID from the context
func GetTaskID(ctx context.Context) string { return value(ctx, TaskIDKey) }

// GetAgentID retrieves the agent ID from the context
func GetAgentID(ctx context.Context) string { return value(ctx, AgentIDKey) }

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID: GetTraceID(ctx),
		RunID:   GetRunID(ctx),
		TaskID:  GetTaskID(ctx),
		AgentID: GetAgentID(ctx),
	}
}

// NewRunContext starts a new evaluation run with fresh trace and run IDs.
func NewRunContext(ctx context.Context) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	return WithRunID(ctx, NewRunID())
}

// NewTaskContext tags ctx with the task being orchestrated. A trace ID is
// generated when the caller has none.
func NewTaskContext(ctx context.Context, taskID string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	return WithTaskID(ctx, taskID)
}
