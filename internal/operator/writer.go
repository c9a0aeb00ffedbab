// Package operator implements the broker's line-oriented control surface:
// parsing commands from standard input and writing tagged records to
// standard output (spec.md §4.11).
package operator

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/marmos91/tracebroker/internal/csvfmt"
)

// Tag identifies the kind of record on one output line.
type Tag string

const (
	TagLogInfo         Tag = "LogInfo"
	TagLogError        Tag = "LogError"
	TagConnectionEvent Tag = "ConnectionEvent"
	TagSpanAlloc       Tag = "SpanAlloc"
	TagSpanEvent       Tag = "SpanEvent"
	TagSpanPath        Tag = "SpanPath"
	TagSpanData        Tag = "SpanData"
)

// Writer serializes operator-output lines from every session and the
// server core onto one shared stream. Per spec.md §5 ("writes to it are
// single-line and small and must be atomic at the line granularity"), all
// callers funnel through a single mutex rather than a dedicated writer
// goroutine — simpler than a channel-fed writer task and equally
// sufficient, since no write here ever blocks on I/O backpressure from a
// slow consumer in the way file-manager writes can.
type Writer struct {
	mu       sync.Mutex
	out      *bufio.Writer
	w        io.Writer
	terminal bool
}

// NewWriter wraps w (typically os.Stdout).
func NewWriter(w io.Writer) *Writer {
	term := false
	if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err == nil {
			term = fi.Mode()&os.ModeCharDevice != 0
		}
	}
	return &Writer{out: bufio.NewWriter(w), w: w, terminal: term}
}

// IsTerminal reports whether the wrapped writer is a character device —
// a human operator's terminal rather than a GUI front-end or test harness
// reading the tagged line protocol.
func (w *Writer) IsTerminal() bool {
	return w.terminal
}

// EmitTable renders rows as a bordered table, for the `list` command when
// IsTerminal is true. Bypasses the tagged-line protocol entirely: a
// terminal operator wants a table, not machine-readable lines.
func (w *Writer) EmitTable(headers []string, rows [][]string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	table := tablewriter.NewWriter(w.out)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	w.out.Flush()
}

// Emit writes one tagged line. clientIdx < 0 omits the "client=" field,
// for lines not associated with any particular session (e.g. a `list` line
// or a failed `kick` reported by pkg/server).
func (w *Writer) Emit(tag Tag, clientIdx int, payload string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if clientIdx >= 0 {
		fmt.Fprintf(w.out, "%s client=%d %s\n", tag, clientIdx, payload)
	} else {
		fmt.Fprintf(w.out, "%s %s\n", tag, payload)
	}
	w.out.Flush()
}

// Field escapes a single operator-output field per spec.md §6's quoting
// rule (space-separated, not comma-separated).
func Field(s string) string {
	return csvfmt.Escape(' ', s)
}

// Fields escapes and space-joins a sequence of fields, for building a
// payload like the SpanAlloc line's "<id> <name> <level> ...".
func Fields(fields ...string) string {
	return csvfmt.Join(' ', fields)
}
