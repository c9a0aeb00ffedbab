package client

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

func TestHandshakeRejectsWrongSignature(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	var buf bytes.Buffer
	task := NewTask(0, "", t.TempDir(), session.Config{MaxFDCount: 1}, operator.NewWriter(&buf))

	done := make(chan bool, 1)
	go func() {
		done <- task.handshake(client)
	}()

	bad := wire.DefaultHello()
	bad.Signature = [4]byte{'X', 'X', 'X', 'X'}
	if err := wire.WriteHello(server, bad); err != nil {
		t.Fatalf("WriteHello: %v", err)
	}

	if ok := <-done; ok {
		t.Fatal("handshake should have failed on signature mismatch")
	}
	if !bytes.Contains(buf.Bytes(), []byte("wrong signature")) {
		t.Errorf("expected a wrong-signature ConnectionEvent line, got %q", buf.String())
	}
}

func TestHandshakeSucceeds(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	var buf bytes.Buffer
	task := NewTask(0, "", t.TempDir(), session.Config{MaxFDCount: 1}, operator.NewWriter(&buf))

	done := make(chan bool, 1)
	go func() {
		done <- task.handshake(client)
	}()

	if err := wire.WriteHello(server, wire.DefaultHello()); err != nil {
		t.Fatalf("WriteHello: %v", err)
	}
	readDone := make(chan error, 1)
	go func() {
		_, err := wire.ReadHello(server)
		readDone <- err
	}()

	if ok := <-done; !ok {
		t.Fatal("handshake should have succeeded")
	}
	if err := <-readDone; err != nil {
		t.Fatalf("server did not receive our hello: %v", err)
	}
}

func TestConnectInterruptedByStop(t *testing.T) {
	var buf bytes.Buffer
	task := NewTask(0, "127.0.0.1:1", t.TempDir(), session.Config{MaxFDCount: 1, ConnectRetries: 100, ConnectBackoff: time.Hour}, operator.NewWriter(&buf))

	go func() {
		time.Sleep(20 * time.Millisecond)
		task.Stop()
	}()

	_, err := task.connect(context.Background())
	if err != ErrInterrupted {
		t.Errorf("connect() error = %v, want ErrInterrupted", err)
	}
}

func TestRunFullLifecycleAgainstLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
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

		enc := wire.EncodeCommand(wire.SpanAllocCmd{ID: 1, Metadata: wire.Metadata{Name: "work", Target: "app"}})
		_ = wire.WriteFrame(conn, enc)

		enc = wire.EncodeCommand(wire.TerminateCmd{})
		_ = wire.WriteFrame(conn, enc)

		buf := make([]byte, 1)
		conn.Read(buf)
	}()

	var out bytes.Buffer
	task := NewTask(0, ln.Addr().String(), t.TempDir(), session.Config{MaxFDCount: 2, RefreshIntervalMS: 0}, operator.NewWriter(&out))

	runDone := make(chan struct{})
	go func() {
		task.Run(context.Background())
		close(runDone)
	}()

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not complete in time")
	}
	<-serverDone

	if task.State() != StateStopped {
		t.Errorf("final state = %v, want Stopped", task.State())
	}
	if !bytes.Contains(out.Bytes(), []byte("SpanAlloc client=0")) {
		t.Errorf("expected SpanAlloc line, got %q", out.String())
	}
}
