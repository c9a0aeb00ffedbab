package clientmanager

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/session"
	"github.com/marmos91/tracebroker/internal/wire"
)

func acceptAndHandshake(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if err := wire.WriteHello(conn, wire.DefaultHello()); err != nil {
			return
		}
		if _, err := wire.ReadHello(conn); err != nil {
			return
		}
		buf := make([]byte, 1)
		conn.Read(buf)
	}()
}

func TestConnectAssignsMonotonicIndices(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	acceptAndHandshake(t, ln)
	acceptAndHandshake(t, ln)

	var buf bytes.Buffer
	m := New(t.TempDir(), operator.NewWriter(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx0 := m.Connect(ctx, ln.Addr().String(), session.Config{MaxFDCount: 1})
	idx1 := m.Connect(ctx, ln.Addr().String(), session.Config{MaxFDCount: 1})

	if idx0 != 0 || idx1 != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", idx0, idx1)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && m.Count() < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}

	if err := m.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
}

func TestKickUnknownIndexReturnsFalse(t *testing.T) {
	m := New(t.TempDir(), operator.NewWriter(&bytes.Buffer{}))
	if m.Kick(99) {
		t.Error("Kick(99) should return false for an unknown index")
	}
}

func TestListIsSortedByIndex(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	for i := 0; i < 3; i++ {
		acceptAndHandshake(t, ln)
	}

	m := New(t.TempDir(), operator.NewWriter(&bytes.Buffer{}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		m.Connect(ctx, ln.Addr().String(), session.Config{MaxFDCount: 1})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && m.Count() < 3 {
		time.Sleep(5 * time.Millisecond)
	}

	entries := m.List()
	for i, e := range entries {
		if e.Index != i {
			t.Errorf("entries[%d].Index = %d, want %d", i, e.Index, i)
		}
	}

	if err := m.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
}
