package logger

import "log/slog"

// Standard field keys for structured logging across the broker. Use these
// consistently so log lines stay greppable and aggregatable.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Client / session identification (spec.md §3, §4.7-§4.9)
	// ========================================================================
	KeyClientIdx   = "client"      // Monotonic client index assigned by the client manager
	KeyRemoteAddr  = "remote_addr" // Target's TCP remote address
	KeyCommand     = "command"     // Wire command being applied: SpanAlloc, SpanInit, ...

	// ========================================================================
	// Tracing domain model (spec.md §3-§4.7)
	// ========================================================================
	KeySpanDefID  = "span_id_def" // The (id) half of a span id
	KeyInstanceID = "instance"    // The (instance) half of a span id
	KeyName       = "name"        // Span/event metadata name
	KeyLevel      = "level"       // Trace/Debug/Info/Warning/Error
	KeyTarget     = "target"      // Derived target of (target, module)
	KeyModule     = "module"      // Derived module of (target, module)
	KeyRunCount   = "run_count"   // Completed instance count for a span

	// ========================================================================
	// File-manager worker (spec.md §4.6)
	// ========================================================================
	KeyRole       = "role"        // FD pool role: runs, events, metadata
	KeyFile       = "file"        // Path written to
	KeyQueueDepth = "queue_depth" // File-manager channel depth at enqueue time

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"
)

// Typed attribute constructors, mirroring the teacher's fields.go but scoped
// to the tracing domain model instead of NFS/SMB.

// ClientIdxAttr returns a slog.Attr for the client index.
func ClientIdxAttr(idx int) slog.Attr {
	return slog.Int(KeyClientIdx, idx)
}

// RemoteAddrAttr returns a slog.Attr for a target's remote address.
func RemoteAddrAttr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// CommandAttr returns a slog.Attr for the wire command name.
func CommandAttr(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// SpanIDAttr returns a slog.Attr group for the (id, instance) pair.
func SpanIDAttr(id, instance uint32) slog.Attr {
	return slog.Group("span", slog.Uint64(KeySpanDefID, uint64(id)), slog.Uint64(KeyInstanceID, uint64(instance)))
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMsAttr returns a slog.Attr for a duration in milliseconds.
func DurationMsAttr(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
