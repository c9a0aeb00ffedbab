// Package spanstate holds one session's live span data: span definitions,
// their active instances, and accumulated duration aggregates (spec.md
// §4.4). A session is owned by exactly one goroutine, so — like
// dittofs's per-connection state — no locking is required here.
package spanstate

import (
	"time"

	"github.com/marmos91/tracebroker/internal/wire"
)

// Instance is one activation of a span: its current values, message, and
// whether it is presently between SpanEnter and SpanExit.
type Instance struct {
	Values   wire.ValueSet
	Message  *string
	Active   bool
	Duration wire.Duration
}

// Aggregates accumulates duration statistics across every instance freed
// for a span.
type Aggregates struct {
	Min      wire.Duration
	Max      wire.Duration
	Sum      wire.Duration
	RunCount uint64
}

// Average returns Sum / RunCount, or the zero duration if nothing has run.
func (a Aggregates) Average() wire.Duration {
	if a.RunCount == 0 {
		return wire.Duration{}
	}
	total := a.Sum.Std()
	return wire.DurationFromStd(total / time.Duration(a.RunCount))
}

// SpanData is everything known about one declared span: its metadata, the
// instances currently alive, and its running aggregates.
type SpanData struct {
	Metadata   wire.Metadata
	Instances  map[uint32]*Instance
	Aggregates Aggregates
	lastAny    uint32
	hasAny     bool
	lastFreed  *Instance
}

// State is the span-id-keyed table for one session.
type State struct {
	spans map[uint32]*SpanData
}

// New returns an empty State.
func New() *State {
	return &State{spans: make(map[uint32]*SpanData)}
}

// AllocSpan installs or replaces a span's metadata. Idempotent: an
// existing span keeps its instances and aggregates, only its metadata is
// overwritten (last writer wins).
func (s *State) AllocSpan(id uint32, md wire.Metadata) {
	sp, ok := s.spans[id]
	if !ok {
		sp = &SpanData{Instances: make(map[uint32]*Instance)}
		s.spans[id] = sp
	}
	sp.Metadata = md
}

// Span returns the span with the given id, if known.
func (s *State) Span(id uint32) (*SpanData, bool) {
	sp, ok := s.spans[id]
	return sp, ok
}

// AllocInstance inserts a new instance under span.ID. No-op if the span is
// unknown — the target is presumed to have already reported (or skipped)
// the alloc, per spec.md's invariant-violation policy.
func (s *State) AllocInstance(span wire.SpanID, values wire.ValueSet, message *string) {
	sp, ok := s.spans[span.ID]
	if !ok {
		return
	}
	sp.Instances[span.Instance] = &Instance{Values: values, Message: message}
	sp.lastAny = span.Instance
	sp.hasAny = true
}

// GetInstance returns the live instance for span, if any.
func (s *State) GetInstance(span wire.SpanID) (*Instance, bool) {
	sp, ok := s.spans[span.ID]
	if !ok {
		return nil, false
	}
	inst, ok := sp.Instances[span.Instance]
	return inst, ok
}

// GetAnyInstance returns any current instance of span id, or the last one
// retained even after it was freed — used for inheritance lookups that
// need a parent's values after the parent itself has ended.
func (s *State) GetAnyInstance(id uint32) (*Instance, bool) {
	sp, ok := s.spans[id]
	if !ok {
		return nil, false
	}
	if inst, ok := sp.Instances[sp.lastAny]; ok && sp.hasAny {
		return inst, true
	}
	for _, inst := range sp.Instances {
		return inst, true
	}
	if sp.lastFreed != nil {
		return sp.lastFreed, true
	}
	return nil, false
}

// FreeInstance removes and returns span's instance, folding its duration
// into the span's aggregates. No-op (ok=false) if unknown.
func (s *State) FreeInstance(span wire.SpanID) (*Instance, bool) {
	sp, ok := s.spans[span.ID]
	if !ok {
		return nil, false
	}
	inst, ok := sp.Instances[span.Instance]
	if !ok {
		return nil, false
	}
	delete(sp.Instances, span.Instance)
	sp.lastFreed = inst

	d := inst.Duration.Std()
	agg := &sp.Aggregates
	if agg.RunCount == 0 || d < agg.Min.Std() {
		agg.Min = inst.Duration
	}
	if agg.RunCount == 0 || d > agg.Max.Std() {
		agg.Max = inst.Duration
	}
	agg.Sum = wire.DurationFromStd(agg.Sum.Std() + d)
	agg.RunCount++

	return inst, true
}

// Spans returns every known span id, for iteration at Terminate.
func (s *State) Spans() map[uint32]*SpanData {
	return s.spans
}

// InheritedValues builds the (parentName::key, value) pairs that callers
// append after a child's own values (see wire.ValueSet.WithAppended).
func InheritedValues(parentName string, parentValues wire.ValueSet) []wire.ValuePair {
	out := make([]wire.ValuePair, 0, len(parentValues))
	for _, pair := range parentValues {
		out = append(out, wire.ValuePair{Key: parentName + "::" + pair.Key, Value: pair.Value})
	}
	return out
}
