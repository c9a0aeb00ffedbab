package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds session-scoped logging context: everything tying a log
// line back to the client/target that produced it.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	ClientIdx int       // Monotonic client index (spec.md §4.9)
	ClientIdxSet bool   // Distinguishes "client 0" from "no client"
	RemoteAddr string   // Target's TCP remote address
	Command   string    // Wire command being applied (SpanAlloc, SpanFree, ...)
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewClientContext creates a LogContext scoped to one client session.
func NewClientContext(clientIdx int, remoteAddr string) *LogContext {
	return &LogContext{
		ClientIdx:    clientIdx,
		ClientIdxSet: true,
		RemoteAddr:   remoteAddr,
		StartTime:    time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithCommand returns a copy with the command name set
func (lc *LogContext) WithCommand(command string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Command = command
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
