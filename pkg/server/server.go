// Package server implements the broker's core: a bounded command channel
// fed by the operator layer, and a select loop dispatching those commands
// to the client manager (spec.md §4.10). Grounded on dittofs's
// pkg/api.Server.Start — a select over {context done, error channel} — widened
// here to a command channel plus the manager's completion stream.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/tracebroker/internal/clientmanager"
	"github.com/marmos91/tracebroker/internal/logger"
	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/session"
	"github.com/marmos91/tracebroker/pkg/metrics"
)

// CommandChannelCapacity is the bound on pending operator commands, per
// spec.md §4.10.
const CommandChannelCapacity = 4

// DefaultPort is appended to a `connect` address with no explicit port.
const DefaultPort = "4026"

// CommandKind tags one operator-issued command.
type CommandKind int

const (
	CmdStop CommandKind = iota
	CmdConnect
	CmdKick
	CmdList
	CmdConfig
)

// Command is one parsed operator-input line, ready for the server loop.
type Command struct {
	Kind   CommandKind
	Addr   string
	Index  int
	Config session.Config
}

// Server owns the command channel and the client manager, and runs the
// core select loop until a Stop command or context cancellation.
type Server struct {
	commands chan Command
	manager  *clientmanager.Manager
	emit     *operator.Writer
	cfg      session.Config
}

// New builds a Server. dataDir is the root data directory clients' CSVs
// are written under; defaultCfg seeds the config newly connected clients
// receive until a `config` command changes it.
func New(dataDir string, emit *operator.Writer, defaultCfg session.Config) *Server {
	return &Server{
		commands: make(chan Command, CommandChannelCapacity),
		manager:  clientmanager.New(dataDir, emit),
		emit:     emit,
		cfg:      defaultCfg,
	}
}

// Submit enqueues a command for the core loop, blocking if the channel is
// full — the operator-input reader's own backpressure.
func (s *Server) Submit(cmd Command) {
	s.commands <- cmd
	metrics.Collector().SetCommandQueueDepth(len(s.commands))
}

// Run drives the core select loop until a Stop command arrives or ctx is
// cancelled, then drains every connected client before returning.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case cmd := <-s.commands:
			metrics.Collector().SetCommandQueueDepth(len(s.commands))
			if !s.apply(ctx, cmd) {
				return s.shutdown()
			}
		}
	}
}

func (s *Server) shutdown() error {
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.manager.StopAll(stopCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// apply handles one command, returning false iff the loop should stop.
func (s *Server) apply(ctx context.Context, cmd Command) bool {
	switch cmd.Kind {
	case CmdStop:
		return false
	case CmdConnect:
		addr := withDefaultPort(cmd.Addr)
		idx := s.manager.Connect(ctx, addr, s.cfg)
		logger.Info("client connecting", "client_idx", idx, "addr", addr)
	case CmdKick:
		if !s.manager.Kick(cmd.Index) {
			s.emit.Emit(operator.TagLogError, -1, operator.Field(fmt.Sprintf("kick: no such client %d", cmd.Index)))
		}
	case CmdList:
		s.emitList()
	case CmdConfig:
		s.cfg = cmd.Config
		s.manager.Broadcast(cmd.Config)
	}
	return true
}

// emitList renders the connected-client list either as a table (when
// stdout is a terminal) or as tagged LogInfo lines (GUI front-end or test
// harness consuming the machine-readable protocol).
func (s *Server) emitList() {
	entries := s.manager.List()

	if s.emit.IsTerminal() {
		rows := make([][]string, len(entries))
		for i, e := range entries {
			rows[i] = []string{fmt.Sprintf("%d", e.Index), e.Addr, e.State.String()}
		}
		s.emit.EmitTable([]string{"Index", "Address", "State"}, rows)
		return
	}

	for _, e := range entries {
		s.emit.Emit(operator.TagLogInfo, -1, operator.Fields(fmt.Sprintf("%d", e.Index), e.Addr))
	}
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return addr + ":" + DefaultPort
}
