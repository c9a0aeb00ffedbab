// Package client owns one TCP connection to a target application, taking
// it through the Connecting -> Handshaking -> Running -> Draining ->
// Stopped states spec.md §4.8 describes. Grounded on dittofs's
// pkg/adapter/nfs.NFSConnection.Serve: a select loop over {context done,
// server shutdown, next read}, with request processing serialized on the
// connection's own goroutine to preserve arrival order.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/tracebroker/internal/logger"
	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/session"
	"github.com/marmos91/tracebroker/internal/wire"
)

// State is the client task's lifecycle stage.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateHandshaking:
		return "Handshaking"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ErrInterrupted is returned when Connecting is cancelled by a stop
// signal before a connection is established.
var ErrInterrupted = errors.New("client: interrupted")

// RetryConfig configures the connect-retry-with-backoff behavior
// supplemented from original_source/thread/connection.rs (disabled by
// default, matching spec.md's silence on reconnection — see DESIGN.md).
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Task drives one target connection end to end.
type Task struct {
	Index   int
	Addr    string
	DataDir string
	Config  session.Config
	Emit    *operator.Writer
	Retry   RetryConfig

	state  State
	stopCh chan struct{}
	doneCh chan struct{}

	mu   sync.Mutex
	sess *session.Session
}

// NewTask builds a Task for clientIdx connecting to addr. The retry
// behavior is derived from cfg's ConnectRetries/ConnectBackoff fields.
func NewTask(idx int, addr, dataDir string, cfg session.Config, emit *operator.Writer) *Task {
	return &Task{
		Index:   idx,
		Addr:    addr,
		DataDir: dataDir,
		Config:  cfg,
		Emit:    emit,
		Retry:   retryFromConfig(cfg),
		state:   StateConnecting,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

func retryFromConfig(cfg session.Config) RetryConfig {
	return RetryConfig{MaxAttempts: cfg.ConnectRetries, Backoff: cfg.ConnectBackoff}
}

// State returns the task's current lifecycle stage.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// setState updates the task's lifecycle stage under t.mu, since State is
// read from clientmanager's list/kick handling on another goroutine.
func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// ConnString reports the address this task connects to, for the `list`
// operator command.
func (t *Task) ConnString() string { return t.Addr }

// Stop fires the task's one-shot stop signal. Safe to call more than
// once.
func (t *Task) Stop() {
	select {
	case <-t.stopCh:
	default:
		close(t.stopCh)
	}
}

// Done returns a channel closed when the task has fully exited.
func (t *Task) Done() <-chan struct{} {
	return t.doneCh
}

// Reconfigure applies cfg as this task's new session config, forwarding to
// the running session if the handshake has already completed. It is a
// no-op if the task has not reached the Running state yet — Run picks up
// t.Config for the session it creates, so the latest Reconfigure always
// wins.
func (t *Task) Reconfigure(cfg session.Config) {
	t.mu.Lock()
	t.Config = cfg
	t.Retry = retryFromConfig(cfg)
	sess := t.sess
	t.mu.Unlock()

	if sess != nil {
		sess.Reconfigure(cfg)
	}
}

// Run executes the task's full lifecycle. It returns once the connection
// has been fully drained (or failed), and always closes Done().
func (t *Task) Run(ctx context.Context) {
	defer close(t.doneCh)

	conn, err := t.connect(ctx)
	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			t.Emit.Emit(operator.TagConnectionEvent, t.Index, operator.Field("interrupted"))
		} else {
			t.Emit.Emit(operator.TagLogError, t.Index, operator.Field(fmt.Sprintf("connect %s: %v", t.Addr, err)))
		}
		t.setState(StateStopped)
		return
	}
	defer conn.Close()

	t.setState(StateHandshaking)
	if !t.handshake(conn) {
		t.setState(StateStopped)
		return
	}

	t.setState(StateRunning)
	t.Emit.Emit(operator.TagConnectionEvent, t.Index, operator.Field(fmt.Sprintf("connected %s", t.Addr)))

	t.mu.Lock()
	cfg := t.Config
	t.mu.Unlock()

	sess, err := session.New(t.Index, t.DataDir, cfg, t.Emit)
	if err != nil {
		t.Emit.Emit(operator.TagLogError, t.Index, operator.Field(err.Error()))
		t.setState(StateStopped)
		return
	}
	t.mu.Lock()
	t.sess = sess
	t.mu.Unlock()

	t.runLoop(conn, sess)

	t.setState(StateDraining)
	_ = sess.Stop(30 * time.Second)
	t.setState(StateStopped)
	t.Emit.Emit(operator.TagConnectionEvent, t.Index, operator.Field("disconnected"))
}

type readResult struct {
	cmd wire.Command
	err error
}

// runLoop is the Running-state select loop: {session error, next command,
// stop signal}, matching spec.md §5's suspension points.
func (t *Task) runLoop(conn net.Conn, sess *session.Session) {
	codec := wire.NewCodec(conn)
	cmdCh := make(chan readResult, 1)

	go func() {
		for {
			cmd, err := codec.ReadCommand()
			cmdCh <- readResult{cmd, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-t.stopCh:
			return
		case err := <-sess.Errors():
			t.Emit.Emit(operator.TagLogError, t.Index, operator.Field(err.Error()))
			return
		case r := <-cmdCh:
			if r.err != nil {
				if !errors.Is(r.err, wire.ErrInvalidData) {
					logger.Debug("client connection ended", "client_idx", t.Index, "error", r.err)
				}
				return
			}
			if !sess.Handle(r.cmd) {
				return
			}
		}
	}
}

// connect dials Addr, retrying up to Retry.MaxAttempts times (0 = no
// retry, the spec.md default) with Retry.Backoff between attempts,
// racing the whole affair against the stop signal.
func (t *Task) connect(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	attempts := 0
	for {
		connCh := make(chan net.Conn, 1)
		errCh := make(chan error, 1)
		go func() {
			c, err := dialer.DialContext(ctx, "tcp", t.Addr)
			if err != nil {
				errCh <- err
				return
			}
			connCh <- c
		}()

		select {
		case <-t.stopCh:
			return nil, ErrInterrupted
		case <-ctx.Done():
			return nil, ErrInterrupted
		case c := <-connCh:
			return c, nil
		case err := <-errCh:
			attempts++
			if attempts > t.Retry.MaxAttempts {
				return nil, err
			}
			select {
			case <-time.After(t.Retry.Backoff):
			case <-t.stopCh:
				return nil, ErrInterrupted
			}
		}
	}
}

// handshake reads and validates the target's hello, replying with ours.
// Returns false if the connection was kicked for a mismatch.
func (t *Task) handshake(conn net.Conn) bool {
	peerHello, err := wire.ReadHello(conn)
	if err != nil {
		t.Emit.Emit(operator.TagLogError, t.Index, operator.Field(fmt.Sprintf("handshake read: %v", err)))
		return false
	}

	if mismatch := wire.Check(peerHello); mismatch != wire.HandshakeOK {
		t.Emit.Emit(operator.TagConnectionEvent, t.Index, operator.Field(mismatch.Reason()))
		return false
	}

	if err := wire.WriteHello(conn, wire.DefaultHello()); err != nil {
		t.Emit.Emit(operator.TagLogError, t.Index, operator.Field(fmt.Sprintf("handshake write: %v", err)))
		return false
	}
	return true
}
