package wire

import (
	"bytes"
	"testing"
)

func TestHelloRoundTrip(t *testing.T) {
	h := DefaultHello()
	copy(h.Version.Pre[:], "beta")

	var buf bytes.Buffer
	if err := WriteHello(&buf, h); err != nil {
		t.Fatalf("WriteHello: %v", err)
	}
	if buf.Len() != HelloSize {
		t.Fatalf("encoded hello is %d bytes, want %d", buf.Len(), HelloSize)
	}

	got, err := ReadHello(&buf)
	if err != nil {
		t.Fatalf("ReadHello: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestCheckSignatureMismatch(t *testing.T) {
	h := DefaultHello()
	h.Signature = [4]byte{'X', 'X', 'X', 'D'}
	if got := Check(h); got != HandshakeSignatureMismatch {
		t.Errorf("Check() = %v, want HandshakeSignatureMismatch", got)
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	h := DefaultHello()
	h.Version.Major = ProtocolVersion.Major + 1
	if got := Check(h); got != HandshakeVersionMismatch {
		t.Errorf("Check() = %v, want HandshakeVersionMismatch", got)
	}
}

func TestCheckOK(t *testing.T) {
	if got := Check(DefaultHello()); got != HandshakeOK {
		t.Errorf("Check() = %v, want HandshakeOK", got)
	}
}

func TestHandshakeMismatchReason(t *testing.T) {
	cases := []struct {
		m    HandshakeMismatch
		want string
	}{
		{HandshakeOK, ""},
		{HandshakeSignatureMismatch, "kicked, reason: wrong signature"},
		{HandshakeVersionMismatch, "kicked, reason: wrong version"},
	}
	for _, c := range cases {
		if got := c.m.Reason(); got != c.want {
			t.Errorf("Reason(%v) = %q, want %q", c.m, got, c.want)
		}
	}
}
