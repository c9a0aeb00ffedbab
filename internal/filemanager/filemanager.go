// Package filemanager runs the single background worker that turns span
// data into CSV rows on disk (spec.md §4.6). It is grounded on dittofs's
// pkg/payload/transfer.TransferQueue: a bounded channel feeding a worker
// goroutine, with completion/error counters and a graceful, timed Stop.
package filemanager

import (
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/tracebroker/internal/fdpool"
	"github.com/marmos91/tracebroker/internal/logger"
	"github.com/marmos91/tracebroker/internal/paths"
	"github.com/marmos91/tracebroker/internal/spanstate"
	"github.com/marmos91/tracebroker/internal/wire"
	"github.com/marmos91/tracebroker/pkg/metrics"
)

// QueueCapacity is the bounded channel size spec.md §4.6 specifies.
const QueueCapacity = 512

// Kind discriminates the payload variants a Manager accepts.
type Kind int

const (
	KindMetadataWrite Kind = iota
	KindEventWrite
	KindRunWrite
	KindProjectWrite
)

// Message is one unit of work for the file-manager worker.
type Message struct {
	Kind Kind

	SpanID uint32

	// Metadata write
	Metadata wire.Metadata

	// Event / Run write
	InstanceID uint32
	Text       string // event/run message
	Values     wire.ValueSet
	Duration   wire.Duration // Run write only

	// Project write
	Project wire.ProjectCmd
}

// Manager owns the FD pool and drains a bounded queue of Messages on a
// single worker goroutine, per spec.md's "runs in a separate task".
type Manager struct {
	pool  *fdpool.Pool
	paths *paths.Paths

	queue chan Message

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	started bool

	errCh chan error

	wal *spanstate.WALIndex
}

// New builds a Manager backed by a fresh FD pool bounded to maxFDCount.
func New(p *paths.Paths, maxFDCount int) *Manager {
	return &Manager{
		pool:      fdpool.New(p, maxFDCount),
		paths:     p,
		queue:     make(chan Message, QueueCapacity),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		errCh:     make(chan error, 1),
	}
}

// SetWALIndex attaches an optional crash-recovery side index; every
// successful event/run write records its resulting file offset there.
// Must be called before Start.
func (m *Manager) SetWALIndex(w *spanstate.WALIndex) {
	m.wal = w
}

// Start launches the worker goroutine. Safe to call once.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.worker()
	go func() {
		m.wg.Wait()
		close(m.stoppedCh)
	}()
}

// Enqueue blocks until the queue has capacity, per spec.md's backpressure
// requirement ("the producer awaits capacity").
func (m *Manager) Enqueue(msg Message) {
	m.queue <- msg
}

// Errors returns the channel the owning session selects on to observe the
// worker's first I/O error.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Stop signals the worker to drain and exit, flushing the FD pool, and
// waits up to timeout for it to finish. Returns the first terminal error
// observed, if any.
func (m *Manager) Stop(timeout time.Duration) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	close(m.stopCh)

	select {
	case <-m.stoppedCh:
	case <-time.After(timeout):
		logger.Warn("file-manager worker stop timed out")
	}

	select {
	case err := <-m.errCh:
		return err
	default:
		return nil
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()

	failed := false
	for {
		select {
		case <-m.stopCh:
			m.drain(&failed)
			if err := m.pool.CloseAll(); err != nil {
				m.reportError(err)
			}
			return
		case msg := <-m.queue:
			m.process(msg, &failed)
		}
	}
}

func (m *Manager) drain(failed *bool) {
	for {
		select {
		case msg := <-m.queue:
			m.process(msg, failed)
		default:
			return
		}
	}
}

// process handles one message. Once the worker has observed an I/O error
// it keeps draining (so producers never block forever) but stops writing,
// per spec.md §4.6.
func (m *Manager) process(msg Message, failed *bool) {
	if *failed {
		return
	}

	start := time.Now()
	var (
		bytes int
		err   error
		role  string
	)
	switch msg.Kind {
	case KindMetadataWrite:
		role = "metadata"
		bytes, err = m.writeMetadata(msg)
	case KindEventWrite:
		role = "events"
		bytes, err = m.writeEvent(msg)
	case KindRunWrite:
		role = "runs"
		bytes, err = m.writeRun(msg)
	case KindProjectWrite:
		role = "project"
		bytes, err = m.writeProject(msg)
	}
	if err != nil {
		*failed = true
		m.reportError(err)
		return
	}
	metrics.Collector().ObserveCSVWrite(role, bytes, time.Since(start))
}

func (m *Manager) reportError(err error) {
	select {
	case m.errCh <- err:
	default:
		// an earlier error is already queued; spec.md only requires the first.
	}
}

func (m *Manager) writeMetadata(msg Message) (int, error) {
	w, err := m.pool.Open(fdpool.Key{SpanID: msg.SpanID, Role: paths.RoleMetadata})
	if err != nil {
		return 0, err
	}
	md := msg.Metadata
	module := ""
	if md.Module != nil {
		module = *md.Module
	}

	total := 0
	line := func(key, value string) error {
		n, err := fmt.Fprintf(w, "%s,%s\n", key, value)
		total += n
		return err
	}
	if md.File != nil {
		if err := line("File", *md.File); err != nil {
			return total, err
		}
	} else if err := line("File", ""); err != nil {
		return total, err
	}
	if err := line("Name", md.Name); err != nil {
		return total, err
	}
	if err := line("Level", md.Level.String()); err != nil {
		return total, err
	}
	if md.Line != nil {
		if err := line("Line", fmt.Sprintf("%d", *md.Line)); err != nil {
			return total, err
		}
	} else if err := line("Line", ""); err != nil {
		return total, err
	}
	if err := line("Target", md.Target); err != nil {
		return total, err
	}
	return total, line("Module path", module)
}

func (m *Manager) writeEvent(msg Message) (int, error) {
	key := fdpool.Key{SpanID: msg.SpanID, Role: paths.RoleEvents}
	w, err := m.pool.Open(key)
	if err != nil {
		return 0, err
	}
	row := fmt.Sprintf("%d,%s,%s\n", msg.InstanceID, escapeField(msg.Text), msg.Values.Render(','))
	n, err := w.WriteString(row)
	if err != nil {
		return n, err
	}
	return n, m.recordWAL(key, msg.SpanID, msg.InstanceID)
}

func (m *Manager) writeRun(msg Message) (int, error) {
	key := fdpool.Key{SpanID: msg.SpanID, Role: paths.RoleRuns}
	w, err := m.pool.Open(key)
	if err != nil {
		return 0, err
	}
	sec, ms, us := wire.Decompose(msg.Duration.Std())
	row := fmt.Sprintf("%d,%s,%d,%d,%d,%s\n", msg.InstanceID, escapeField(msg.Text), sec, ms, us, msg.Values.Render(','))
	n, err := w.WriteString(row)
	if err != nil {
		return n, err
	}
	return n, m.recordWAL(key, msg.SpanID, msg.InstanceID)
}

// recordWAL flushes key's writer and records the resulting offset in the
// optional WAL index. No-op if no index is attached.
func (m *Manager) recordWAL(key fdpool.Key, spanID, instanceID uint32) error {
	if m.wal == nil {
		return nil
	}
	size, err := m.pool.Size(key)
	if err != nil {
		return err
	}
	return m.wal.Record(spanID, instanceID, size)
}

func (m *Manager) writeProject(msg Message) (int, error) {
	path := m.paths.SummaryFile("info.csv")
	f, err := openTruncate(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	p := msg.Project
	rows := [][2]string{
		{"AppName", p.AppName},
		{"Name", p.Name},
		{"Version", p.Version},
		{"CommandLine", p.CommandLine},
		{"TargetOs", p.Target.OS},
		{"TargetFamily", p.Target.Family},
		{"TargetArch", p.Target.Arch},
	}
	if p.CPU != nil {
		rows = append(rows, [2]string{"CpuName", p.CPU.Name}, [2]string{"CpuCoreCount", fmt.Sprintf("%d", p.CPU.CoreCount)})
	}
	total := 0
	for _, r := range rows {
		n, err := fmt.Fprintf(f, "%s,%s\n", r[0], escapeField(r[1]))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
