package operator

import (
	"strings"
	"testing"
)

func TestParseLineBlankYieldsEmptyName(t *testing.T) {
	p := ParseLine("   ")
	if p.Name != "" {
		t.Errorf("Name = %q, want empty", p.Name)
	}
}

func TestParseLinePositionalAndKeyValue(t *testing.T) {
	p := ParseLine("connect 127.0.0.1:5000 retries=3")
	if p.Name != "connect" {
		t.Errorf("Name = %q, want connect", p.Name)
	}
	if p.Arg(0) != "127.0.0.1:5000" {
		t.Errorf("Arg(0) = %q, want 127.0.0.1:5000", p.Arg(0))
	}
	if p.KeyValue["retries"] != "3" {
		t.Errorf("KeyValue[retries] = %q, want 3", p.KeyValue["retries"])
	}
}

func TestReaderSkipsBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader("\n\nlist\n\nstop\n"))

	first, ok := r.Next()
	if !ok || first.Name != "list" {
		t.Fatalf("first = %+v, ok=%v, want list", first, ok)
	}
	second, ok := r.Next()
	if !ok || second.Name != "stop" {
		t.Fatalf("second = %+v, ok=%v, want stop", second, ok)
	}
	if _, ok := r.Next(); ok {
		t.Error("expected Next to return false after input exhausted")
	}
}
