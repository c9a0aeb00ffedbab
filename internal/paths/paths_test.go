package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewCreatesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, role := range []Role{RoleRuns, RoleEvents, RoleMetadata} {
		info, err := os.Stat(p.Get(role))
		if err != nil {
			t.Fatalf("Get(%v) = %s did not exist: %v", role, p.Get(role), err)
		}
		if !info.IsDir() {
			t.Errorf("Get(%v) = %s is not a directory", role, p.Get(role))
		}
	}

	want := filepath.Join(dir, "3")
	if p.ClientDir() != want {
		t.Errorf("ClientDir() = %q, want %q", p.ClientDir(), want)
	}
}

func TestNewIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir, 0); err != nil {
		t.Fatalf("first New: %v", err)
	}
	marker := filepath.Join(dir, "0", "runs", "sentinel.csv")
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := New(dir, 0); err != nil {
		t.Fatalf("second New: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("re-creating client 0's tree removed pre-existing file: %v", err)
	}
}

func TestNewDoesNotDisturbOtherClients(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir, 0); err != nil {
		t.Fatalf("New(0): %v", err)
	}
	if _, err := New(dir, 1); err != nil {
		t.Fatalf("New(1): %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "0", "events")); err != nil {
		t.Errorf("client 0's tree was disturbed by creating client 1: %v", err)
	}
}

func TestSpanFileAndSummaryFile(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := filepath.Join(dir, "2", "runs", "42.csv")
	if got := p.SpanFile(RoleRuns, 42); got != want {
		t.Errorf("SpanFile() = %q, want %q", got, want)
	}

	want = filepath.Join(dir, "2", "times.csv")
	if got := p.SummaryFile("times.csv"); got != want {
		t.Errorf("SummaryFile() = %q, want %q", got, want)
	}
}
