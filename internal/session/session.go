// Package session implements the per-client command dispatcher: applying
// each wire command to span state and the span tree, enqueueing CSV
// writes, and emitting operator-output lines (spec.md §4.7). Grounded on
// dittofs's internal/adapter/nfs dispatch.go switch-table shape, adapted
// from an RPC procedure table to a ten-member command union.
package session

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/marmos91/tracebroker/internal/filemanager"
	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/paths"
	"github.com/marmos91/tracebroker/internal/spanstate"
	"github.com/marmos91/tracebroker/internal/spantree"
	"github.com/marmos91/tracebroker/internal/wire"
	"github.com/marmos91/tracebroker/pkg/metrics"
)

// Config carries the per-client behavior knobs spec.md's "config" command
// can update (§4.10).
type Config struct {
	MaxFDCount        int
	Inheritance       bool
	RefreshIntervalMS int64

	// EnableWALIndex turns on the optional badger-backed crash-recovery
	// side index (spec.md §9's durability open question supplement). Off
	// by default: most tests and single-shot runs never need it.
	EnableWALIndex bool

	// ConnectRetries bounds how many times the owning client task retries
	// a failed initial TCP connection before giving up (0 = no retry, the
	// default). ConnectBackoff is the delay between attempts.
	ConnectRetries int
	ConnectBackoff time.Duration
}

// Session holds everything needed to turn one target's commands into
// on-disk CSV and operator output.
type Session struct {
	clientIdx int
	cfg       Config
	paths     *paths.Paths
	fm        *filemanager.Manager
	state     *spanstate.State
	tree      *spantree.Tree
	emit      *operator.Writer
	wal       *spanstate.WALIndex

	lastUpdate map[uint32]time.Time
}

// New builds a Session for clientIdx, creating its data directory and
// starting its file-manager worker.
func New(clientIdx int, dataDir string, cfg Config, emit *operator.Writer) (*Session, error) {
	p, err := paths.New(dataDir, clientIdx)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	fm := filemanager.New(p, cfg.MaxFDCount)

	var wal *spanstate.WALIndex
	if cfg.EnableWALIndex {
		wal, err = spanstate.OpenWALIndex(filepath.Join(p.ClientDir(), "wal"))
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		fm.SetWALIndex(wal)
	}

	fm.Start()

	return &Session{
		clientIdx:  clientIdx,
		cfg:        cfg,
		paths:      p,
		fm:         fm,
		state:      spanstate.New(),
		tree:       spantree.New(),
		emit:       emit,
		wal:        wal,
		lastUpdate: make(map[uint32]time.Time),
	}, nil
}

// Reconfigure applies an updated Config to a running session (spec.md §9's
// config-propagation resolution: live sessions pick up new defaults, not
// just newly connected ones). Inheritance and RefreshIntervalMS take effect
// on the next command handled; MaxFDCount does not — the file manager's FD
// pool keeps the capacity it was created with in New.
func (s *Session) Reconfigure(cfg Config) {
	s.cfg = cfg
}

// Errors exposes the file-manager's error channel, selected on by the
// owning client task (spec.md §4.7's get_error()).
func (s *Session) Errors() <-chan error {
	return s.fm.Errors()
}

// Handle applies one command and returns false iff the session should
// stop (Terminate was received).
func (s *Session) Handle(cmd wire.Command) bool {
	switch c := cmd.(type) {
	case wire.SpanAllocCmd:
		s.handleSpanAlloc(c)
	case wire.SpanInitCmd:
		s.handleSpanInit(c)
	case wire.SpanFollowsCmd:
		s.handleSpanFollows(c)
	case wire.SpanValuesCmd:
		s.handleSpanValues(c)
	case wire.EventCmd:
		s.handleEvent(c)
	case wire.SpanEnterCmd:
		s.handleSpanEnter(c)
	case wire.SpanExitCmd:
		s.handleSpanExit(c)
	case wire.SpanFreeCmd:
		s.handleSpanFree(c)
	case wire.ProjectCmd:
		s.handleProject(c)
	case wire.TerminateCmd:
		s.handleTerminate()
		return false
	}
	return true
}

func (s *Session) handleSpanAlloc(c wire.SpanAllocCmd) {
	s.fm.Enqueue(filemanager.Message{Kind: filemanager.KindMetadataWrite, SpanID: c.ID, Metadata: c.Metadata})

	target, module := c.Metadata.TargetModule()
	lineStr := ""
	if c.Metadata.Line != nil {
		lineStr = fmt.Sprintf("%d", *c.Metadata.Line)
	}
	fileStr := ""
	if c.Metadata.File != nil {
		fileStr = *c.Metadata.File
	}
	payload := operator.Fields(
		fmt.Sprintf("%d", c.ID),
		c.Metadata.Name,
		c.Metadata.Level.String(),
		target,
		module,
		fileStr,
		lineStr,
	)
	s.emit.Emit(operator.TagSpanAlloc, s.clientIdx, payload)

	s.state.AllocSpan(c.ID, c.Metadata)
	s.tree.AddNode(c.ID, c.Metadata.Name)
	s.emitSpanPath(c.ID)
	metrics.Collector().IncSpansCreated()
}

func (s *Session) handleSpanInit(c wire.SpanInitCmd) {
	s.state.AllocInstance(c.Span, c.Values, c.Message)
	metrics.Collector().IncInstancesCreated()
	if c.Parent != nil && s.tree.RelocateNode(c.Span.ID, c.Parent.ID) {
		s.emitSpanPath(c.Span.ID)
	}
}

func (s *Session) handleSpanFollows(c wire.SpanFollowsCmd) {
	parent := s.tree.FindParent(c.Follows.ID)
	if parent == nil {
		return
	}
	if s.tree.RelocateNode(c.Span.ID, parent.ID) {
		s.emitSpanPath(c.Span.ID)
	}
}

func (s *Session) handleSpanValues(c wire.SpanValuesCmd) {
	inst, ok := s.state.GetInstance(c.Span)
	if !ok {
		return
	}
	inst.Values = append(inst.Values, c.Values...)
	if c.Message != nil {
		inst.Message = c.Message
	}
}

func (s *Session) handleEvent(c wire.EventCmd) {
	if c.Span == nil {
		s.ensureRootSpan()
	}

	target, module := c.Metadata.TargetModule()
	if module == "" {
		module = "main"
	}
	date := time.Unix(c.TimeUnixSeconds, 0).Local().Format("Mon Jan 2 03:04:05 PM")

	text := c.Metadata.Name
	if c.Message != nil {
		text = *c.Message
	}
	rendered := fmt.Sprintf("(%s) <%s> %s: %s", date, target, module, text)

	values := c.Values
	if s.cfg.Inheritance && c.Span != nil {
		if inst, ok := s.state.GetAnyInstance(c.Span.ID); ok {
			if sp, ok := s.state.Span(c.Span.ID); ok {
				values = values.WithAppended(spanstate.InheritedValues(sp.Metadata.Name, inst.Values)...)
			}
		}
	}

	instanceID := uint32(0)
	spanID := uint32(0)
	if c.Span != nil {
		instanceID = c.Span.Instance
		spanID = c.Span.ID
	}
	s.fm.Enqueue(filemanager.Message{
		Kind:       filemanager.KindEventWrite,
		SpanID:     spanID,
		InstanceID: instanceID,
		Text:       rendered,
		Values:     values,
	})

	s.emit.Emit(operator.TagSpanEvent, s.clientIdx, operator.Field(rendered))
}

func (s *Session) handleSpanEnter(c wire.SpanEnterCmd) {
	inst, ok := s.state.GetInstance(c.Span)
	if !ok {
		return
	}
	inst.Active = true
	s.emitThrottledData(c.Span.ID)
}

func (s *Session) handleSpanExit(c wire.SpanExitCmd) {
	inst, ok := s.state.GetInstance(c.Span)
	if !ok {
		return
	}
	inst.Active = false
	inst.Duration = c.Duration
	s.emitThrottledData(c.Span.ID)
}

func (s *Session) handleSpanFree(c wire.SpanFreeCmd) {
	inst, ok := s.state.GetInstance(c.Span)
	if !ok {
		return
	}
	values := inst.Values
	if s.cfg.Inheritance {
		if parent := s.tree.FindParent(c.Span.ID); parent != nil {
			if parentInst, ok := s.state.GetAnyInstance(parent.ID); ok {
				values = values.WithAppended(spanstate.InheritedValues(parent.Name, parentInst.Values)...)
			}
		}
	}

	text := ""
	if inst.Message != nil {
		text = *inst.Message
	}
	s.fm.Enqueue(filemanager.Message{
		Kind:       filemanager.KindRunWrite,
		SpanID:     c.Span.ID,
		InstanceID: c.Span.Instance,
		Text:       text,
		Values:     values,
		Duration:   inst.Duration,
	})

	s.state.FreeInstance(c.Span)
	s.emitThrottledData(c.Span.ID)
}

func (s *Session) handleProject(c wire.ProjectCmd) {
	s.fm.Enqueue(filemanager.Message{Kind: filemanager.KindProjectWrite, Project: c})
}

func (s *Session) handleTerminate() {
	if err := s.writeSummaries(); err != nil {
		s.emit.Emit(operator.TagLogError, s.clientIdx, operator.Field(err.Error()))
	}
}

// ensureRootSpan auto-creates synthetic span id 0 on first use, per
// spec.md §8's boundary behavior for an Event with no preceding SpanAlloc.
func (s *Session) ensureRootSpan() {
	if _, ok := s.state.Span(0); ok {
		return
	}
	s.state.AllocSpan(0, wire.Metadata{Name: "root", Level: wire.LevelInfo})
	s.tree.AddNode(0, "root")
}

func (s *Session) emitSpanPath(id uint32) {
	path := s.tree.PathToRoot(id)
	s.emit.Emit(operator.TagSpanPath, s.clientIdx, operator.Fields(fmt.Sprintf("%d", id), path))
}

// emitThrottledData emits a SpanData line at most once per
// refresh_interval_ms for a given span, per spec.md §4.7.
func (s *Session) emitThrottledData(id uint32) {
	now := time.Now()
	if last, ok := s.lastUpdate[id]; ok {
		if now.Sub(last) < time.Duration(s.cfg.RefreshIntervalMS)*time.Millisecond {
			return
		}
	}
	s.lastUpdate[id] = now

	sp, ok := s.state.Span(id)
	if !ok {
		return
	}

	// is_dropped ⇔ instances map is empty; is_active ⇔ any instance active.
	dropLetter := "D"
	activeLetter := "I"
	for _, inst := range sp.Instances {
		dropLetter = "L"
		if inst.Active {
			activeLetter = "A"
		}
	}

	payload := operator.Fields(
		fmt.Sprintf("%d", id),
		dropLetter,
		activeLetter,
		wire.Human(sp.Aggregates.Min.Std()),
		wire.Human(sp.Aggregates.Max.Std()),
		wire.Human(sp.Aggregates.Average().Std()),
		fmt.Sprintf("%d", sp.Aggregates.RunCount),
	)
	s.emit.Emit(operator.TagSpanData, s.clientIdx, payload)
}

// Stop drains the file-manager worker and closes the WAL index, if one was
// opened. Returns the first terminal error observed, if any, per spec.md
// §4.7's stop() contract.
func (s *Session) Stop(timeout time.Duration) error {
	stopErr := s.fm.Stop(timeout)
	if err := s.wal.Close(); err != nil && stopErr == nil {
		stopErr = fmt.Errorf("session: close wal index: %w", err)
	}
	return stopErr
}
