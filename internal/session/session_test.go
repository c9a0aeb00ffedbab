package session

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/paths"
	"github.com/marmos91/tracebroker/internal/wire"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := operator.NewWriter(&buf)
	s, err := New(0, t.TempDir(), Config{MaxFDCount: 4, Inheritance: true, RefreshIntervalMS: 0}, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, &buf
}

func TestSpanAllocEmitsLineAndInstallsSpan(t *testing.T) {
	s, buf := newTestSession(t)
	line := uint32(12)
	cont := s.Handle(wire.SpanAllocCmd{
		ID: 1,
		Metadata: wire.Metadata{
			Name:   "render_frame",
			Target: "myapp::render",
			Level:  wire.LevelInfo,
			Line:   &line,
		},
	})
	if !cont {
		t.Fatal("Handle(SpanAlloc) returned continue=false")
	}
	if _, ok := s.state.Span(1); !ok {
		t.Error("span 1 was not installed into state")
	}
	if !strings.Contains(buf.String(), "SpanAlloc client=0") {
		t.Errorf("expected a SpanAlloc line, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "SpanPath client=0 1 render_frame") {
		t.Errorf("expected a SpanPath line for the new root node, got %q", buf.String())
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSpanFreeEnqueuesRunAndUpdatesAggregates(t *testing.T) {
	s, _ := newTestSession(t)
	s.Handle(wire.SpanAllocCmd{ID: 1, Metadata: wire.Metadata{Name: "work", Target: "app"}})
	span := wire.SpanID{ID: 1, Instance: 1}
	s.Handle(wire.SpanInitCmd{Span: span})
	s.Handle(wire.SpanEnterCmd{Span: span})
	s.Handle(wire.SpanExitCmd{Span: span, Duration: wire.DurationFromStd(250 * time.Millisecond)})
	s.Handle(wire.SpanFreeCmd{Span: span})

	sp, ok := s.state.Span(1)
	if !ok {
		t.Fatal("span 1 missing after free")
	}
	if sp.Aggregates.RunCount != 1 {
		t.Errorf("RunCount = %d, want 1", sp.Aggregates.RunCount)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got, err := os.ReadFile(s.paths.SpanFile(paths.RoleRuns, 1))
	if err != nil {
		t.Fatalf("ReadFile runs: %v", err)
	}
	if !strings.HasPrefix(string(got), "1,,0,250,0,") {
		t.Errorf("runs row = %q, want prefix %q", got, "1,,0,250,0,")
	}
}

func TestTerminateWritesSummaries(t *testing.T) {
	s, _ := newTestSession(t)
	s.Handle(wire.SpanAllocCmd{ID: 1, Metadata: wire.Metadata{Name: "work", Target: "app"}})
	span := wire.SpanID{ID: 1, Instance: 1}
	s.Handle(wire.SpanInitCmd{Span: span})
	s.Handle(wire.SpanExitCmd{Span: span, Duration: wire.DurationFromStd(100 * time.Millisecond)})
	s.Handle(wire.SpanFreeCmd{Span: span})

	cont := s.Handle(wire.TerminateCmd{})
	if cont {
		t.Fatal("Handle(Terminate) should return continue=false")
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, err := os.Stat(filepath.Join(s.paths.ClientDir(), "times.csv")); err != nil {
		t.Errorf("times.csv missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.paths.ClientDir(), "tree.txt")); err != nil {
		t.Errorf("tree.txt missing: %v", err)
	}
}

func TestEventWithNoSpanAutoCreatesRoot(t *testing.T) {
	s, _ := newTestSession(t)
	msg := "boot complete"
	s.Handle(wire.EventCmd{
		Span:            nil,
		TimeUnixSeconds: 1700000000,
		Metadata:        wire.Metadata{Name: "startup", Target: "app"},
		Message:         &msg,
	})

	sp, ok := s.state.Span(0)
	if !ok {
		t.Fatal("span 0 was not auto-created")
	}
	if sp.Metadata.Name != "root" {
		t.Errorf("auto-created span name = %q, want %q", sp.Metadata.Name, "root")
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got, err := os.ReadFile(s.paths.SpanFile(paths.RoleEvents, 0))
	if err != nil {
		t.Fatalf("ReadFile events/0.csv: %v", err)
	}
	if !strings.Contains(string(got), "boot complete") {
		t.Errorf("events/0.csv = %q, missing event text", got)
	}
}

func TestEnableWALIndexOpensAndCloses(t *testing.T) {
	var buf bytes.Buffer
	w := operator.NewWriter(&buf)
	s, err := New(0, t.TempDir(), Config{MaxFDCount: 2, EnableWALIndex: true}, w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.wal == nil {
		t.Fatal("EnableWALIndex: true should populate s.wal")
	}

	s.Handle(wire.SpanAllocCmd{ID: 1, Metadata: wire.Metadata{Name: "work", Target: "app"}})
	span := wire.SpanID{ID: 1, Instance: 1}
	s.Handle(wire.SpanInitCmd{Span: span})
	s.Handle(wire.SpanExitCmd{Span: span, Duration: wire.DurationFromStd(10 * time.Millisecond)})
	s.Handle(wire.SpanFreeCmd{Span: span})

	// Drain the file-manager worker (which records the WAL offset) without
	// yet closing the WAL index, so the recorded offset can be inspected.
	if err := s.fm.Stop(time.Second); err != nil {
		t.Fatalf("fm.Stop: %v", err)
	}

	off, found, err := s.wal.Offset(1, 1)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if !found || off == 0 {
		t.Errorf("Offset(1,1) = (%d, %v), want a recorded non-zero offset", off, found)
	}

	if err := s.wal.Close(); err != nil {
		t.Fatalf("wal.Close: %v", err)
	}
}

func TestSpanFreeInheritanceAppendsParentValuesAfterChild(t *testing.T) {
	s, _ := newTestSession(t)
	s.Handle(wire.SpanAllocCmd{ID: 1, Metadata: wire.Metadata{Name: "outer"}})
	s.Handle(wire.SpanAllocCmd{ID: 2, Metadata: wire.Metadata{Name: "inner"}})

	outer := wire.SpanID{ID: 1, Instance: 1}
	inner := wire.SpanID{ID: 2, Instance: 1}
	s.Handle(wire.SpanInitCmd{
		Span:   outer,
		Values: wire.ValueSet{{Key: "k", Value: wire.StringValue("v1")}},
	})
	s.Handle(wire.SpanInitCmd{
		Span:   inner,
		Parent: &outer,
		Values: wire.ValueSet{{Key: "m", Value: wire.StringValue("v2")}},
	})
	s.Handle(wire.SpanFreeCmd{Span: inner})

	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got, err := os.ReadFile(s.paths.SpanFile(paths.RoleRuns, 2))
	if err != nil {
		t.Fatalf("ReadFile runs: %v", err)
	}
	// Child's own value sorts first, the parent-qualified value follows
	// (spec.md §8 scenario 2; original_source's inherit_from appends
	// rather than prepends).
	if !strings.Contains(string(got), `m = "v2",outer::k = "v1"`) {
		t.Errorf("runs row = %q, want it to contain %q", got, `m = "v2",outer::k = "v1"`)
	}
}

func TestSpanFollowsReparents(t *testing.T) {
	s, buf := newTestSession(t)
	s.Handle(wire.SpanAllocCmd{ID: 1, Metadata: wire.Metadata{Name: "app"}})
	s.Handle(wire.SpanAllocCmd{ID: 2, Metadata: wire.Metadata{Name: "a"}})
	s.Handle(wire.SpanAllocCmd{ID: 3, Metadata: wire.Metadata{Name: "b"}})

	s.Handle(wire.SpanInitCmd{Span: wire.SpanID{ID: 2, Instance: 1}, Parent: &wire.SpanID{ID: 1, Instance: 1}})
	buf.Reset()

	s.Handle(wire.SpanFollowsCmd{Span: wire.SpanID{ID: 3, Instance: 1}, Follows: wire.SpanID{ID: 2, Instance: 1}})

	if got := s.tree.FindParent(3); got == nil || got.ID != 1 {
		t.Errorf("FindParent(3) = %v, want node 1 (parent of 2)", got)
	}
	if !strings.Contains(buf.String(), "SpanPath client=0 3") {
		t.Errorf("expected SpanPath line for 3, got %q", buf.String())
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
