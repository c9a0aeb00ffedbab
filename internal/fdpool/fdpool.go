// Package fdpool implements the bounded cache of open, buffered,
// append-only file handles the file-manager worker writes CSV rows
// through (spec.md §4.3). It is touched by exactly one goroutine and
// therefore needs no internal locking — the same ownership discipline
// dittofs's cache layer gives its single-flusher WAL path.
package fdpool

import (
	"bufio"
	"cmp"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/marmos91/tracebroker/internal/paths"
	"github.com/marmos91/tracebroker/pkg/metrics"
)

// Key identifies one cached handle: a span and the role-subdirectory its
// CSV file lives under.
type Key struct {
	SpanID uint32
	Role   paths.Role
}

type entry struct {
	file       *os.File
	writer     *bufio.Writer
	lastAccess time.Time
}

// Pool is a bounded LRU cache of append-only file handles keyed by Key.
type Pool struct {
	paths   *paths.Paths
	maxSize int
	entries map[Key]*entry
}

// New returns a pool that holds at most maxSize open handles at once,
// resolving files through p.
func New(p *paths.Paths, maxSize int) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Pool{
		paths:   p,
		maxSize: maxSize,
		entries: make(map[Key]*entry, maxSize),
	}
}

// Open returns the buffered writer for key, opening (or creating) and
// caching it if necessary. If the cache is full, the least-recently-used
// entry is flushed and closed first.
func (p *Pool) Open(key Key) (*bufio.Writer, error) {
	if e, ok := p.entries[key]; ok {
		e.lastAccess = time.Now()
		return e.writer, nil
	}

	if len(p.entries) >= p.maxSize {
		if err := p.evictLRU(); err != nil {
			return nil, err
		}
	}

	path := p.paths.SpanFile(key.Role, key.SpanID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("fdpool: open %s: %w", path, err)
	}

	e := &entry{file: f, writer: bufio.NewWriter(f), lastAccess: time.Now()}
	p.entries[key] = e
	metrics.Collector().SetFDPoolSize(len(p.entries))
	return e.writer, nil
}

// evictLRU flushes and closes the single oldest entry to make room for a
// new one.
func (p *Pool) evictLRU() error {
	type access struct {
		key  Key
		time time.Time
	}
	ordered := make([]access, 0, len(p.entries))
	for k, e := range p.entries {
		ordered = append(ordered, access{k, e.lastAccess})
	}
	slices.SortFunc(ordered, func(a, b access) int {
		return cmp.Compare(a.time.UnixNano(), b.time.UnixNano())
	})
	if len(ordered) == 0 {
		return nil
	}
	if err := p.closeEntry(ordered[0].key); err != nil {
		return err
	}
	metrics.Collector().IncFDEvictions()
	metrics.Collector().SetFDPoolSize(len(p.entries))
	return nil
}

func (p *Pool) closeEntry(key Key) error {
	e, ok := p.entries[key]
	if !ok {
		return nil
	}
	delete(p.entries, key)

	flushErr := e.writer.Flush()
	closeErr := e.file.Close()
	if flushErr != nil {
		return fmt.Errorf("fdpool: flush %v: %w", key, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("fdpool: close %v: %w", key, closeErr)
	}
	return nil
}

// Flush drains buffers for every cached entry without closing them.
func (p *Pool) Flush() error {
	for key, e := range p.entries {
		if err := e.writer.Flush(); err != nil {
			return fmt.Errorf("fdpool: flush %v: %w", key, err)
		}
	}
	return nil
}

// CloseAll flushes and closes every cached entry. Call once, at worker
// shutdown.
func (p *Pool) CloseAll() error {
	keys := make([]Key, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	var firstErr error
	for _, k := range keys {
		if err := p.closeEntry(k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len reports the number of handles currently cached, for tests and
// metrics.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Size flushes key's buffered writer (if cached) and returns the file's
// current size — the byte offset one past the most recent write. Used by
// the optional WAL side index to record write progress per instance.
func (p *Pool) Size(key Key) (int64, error) {
	e, ok := p.entries[key]
	if !ok {
		fi, err := os.Stat(p.paths.SpanFile(key.Role, key.SpanID))
		if err != nil {
			return 0, fmt.Errorf("fdpool: stat %v: %w", key, err)
		}
		return fi.Size(), nil
	}
	if err := e.writer.Flush(); err != nil {
		return 0, fmt.Errorf("fdpool: flush %v: %w", key, err)
	}
	fi, err := e.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("fdpool: stat %v: %w", key, err)
	}
	return fi.Size(), nil
}
