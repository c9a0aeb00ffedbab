// Package clientmanager tracks every connected target as a monotonically
// indexed client.Task and offers the registration/lookup/broadcast
// operations the server core needs (spec.md §4.9). Grounded on dittofs's
// pkg/registry.Registry for the mutex-guarded named-resource-map shape,
// generalized from named shares/stores to index-keyed client tasks.
package clientmanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/tracebroker/internal/client"
	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/session"
	"github.com/marmos91/tracebroker/pkg/metrics"
)

// Manager owns the set of connected clients and assigns each a
// monotonically increasing index that is never reused, so `list` and
// `kick` always refer to the connection the operator meant even after
// earlier clients disconnect.
type Manager struct {
	mu      sync.RWMutex
	next    int
	clients map[int]*client.Task
	emit    *operator.Writer
	dataDir string
}

// New builds an empty Manager.
func New(dataDir string, emit *operator.Writer) *Manager {
	return &Manager{
		clients: make(map[int]*client.Task),
		emit:    emit,
		dataDir: dataDir,
	}
}

// Connect allocates the next client index, starts a Task dialing addr in
// its own goroutine, and returns the assigned index immediately — it does
// not wait for the handshake to complete. The task's connect-retry
// behavior is derived from cfg.
func (m *Manager) Connect(ctx context.Context, addr string, cfg session.Config) int {
	m.mu.Lock()
	idx := m.next
	m.next++
	task := client.NewTask(idx, addr, m.dataDir, cfg, m.emit)
	m.clients[idx] = task
	count := len(m.clients)
	m.mu.Unlock()
	metrics.Collector().SetActiveClients(count)

	go func() {
		task.Run(ctx)
		m.forget(idx)
	}()

	return idx
}

func (m *Manager) forget(idx int) {
	m.mu.Lock()
	delete(m.clients, idx)
	count := len(m.clients)
	m.mu.Unlock()
	metrics.Collector().SetActiveClients(count)
}

// Kick stops the client at idx. Returns false if no such client is
// connected.
func (m *Manager) Kick(idx int) bool {
	m.mu.RLock()
	task, ok := m.clients[idx]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	task.Stop()
	return true
}

// Broadcast applies cfg to every currently connected session — the
// config-propagation resolution to spec.md §9's open question.
func (m *Manager) Broadcast(cfg session.Config) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, task := range m.clients {
		task.Reconfigure(cfg)
	}
}

// Entry describes one connected client for the `list` operator command.
type Entry struct {
	Index int
	Addr  string
	State client.State
}

// List returns a snapshot of all connected clients, ordered by index.
func (m *Manager) List() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.clients))
	for idx, task := range m.clients {
		entries = append(entries, Entry{Index: idx, Addr: task.ConnString(), State: task.State()})
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Index > entries[j].Index; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
	return entries
}

// Count returns the number of currently connected clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// StopAll stops every connected client and waits for each to finish
// draining, or until ctx is done.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	tasks := make([]*client.Task, 0, len(m.clients))
	for _, task := range m.clients {
		tasks = append(tasks, task)
	}
	m.mu.RUnlock()

	for _, task := range tasks {
		task.Stop()
	}
	for _, task := range tasks {
		select {
		case <-task.Done():
		case <-ctx.Done():
			return fmt.Errorf("clientmanager: stop all: %w", ctx.Err())
		}
	}
	return nil
}
