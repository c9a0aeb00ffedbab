// Package metrics defines the broker-wide counters and gauges a
// Prometheus-backed collector records (pkg/metrics/prometheus), following
// the nil-safe-interface pattern dittofs uses for its own optional
// metrics: every call site holds a BrokerMetrics obtained from Collector()
// and never checks IsEnabled itself, so metrics stay a zero-overhead no-op
// until SetCollector installs a real one.
package metrics

import (
	"sync/atomic"
	"time"
)

// BrokerMetrics records the counters and gauges exercised across a
// tracebroker process. Every method must be safe to call from any
// client's goroutine concurrently.
type BrokerMetrics interface {
	// SetActiveClients reports the current number of connected clients.
	SetActiveClients(n int)

	// IncSpansCreated counts one SpanAlloc.
	IncSpansCreated()

	// IncInstancesCreated counts one SpanInit.
	IncInstancesCreated()

	// IncFDEvictions counts one fdpool LRU eviction.
	IncFDEvictions()

	// SetFDPoolSize reports the number of open handles an fdpool.Pool is
	// currently holding.
	SetFDPoolSize(n int)

	// SetCommandQueueDepth reports the number of operator commands
	// currently queued ahead of the core select loop.
	SetCommandQueueDepth(n int)

	// ObserveCSVWrite records one CSV row write, labeled by the file
	// role it went to ("times", "runs", "events", "projects", ...).
	ObserveCSVWrite(role string, bytes int, dur time.Duration)
}

var current atomic.Value

func init() {
	current.Store(BrokerMetrics(noop{}))
}

// SetCollector installs m as the active collector. Passing nil restores
// the no-op default. Call once, before the server starts accepting
// clients.
func SetCollector(m BrokerMetrics) {
	if m == nil {
		m = noop{}
	}
	current.Store(m)
}

// Collector returns the currently installed collector, or a no-op if
// SetCollector was never called.
func Collector() BrokerMetrics {
	return current.Load().(BrokerMetrics)
}

type noop struct{}

func (noop) SetActiveClients(int)                       {}
func (noop) IncSpansCreated()                           {}
func (noop) IncInstancesCreated()                       {}
func (noop) IncFDEvictions()                            {}
func (noop) SetFDPoolSize(int)                          {}
func (noop) SetCommandQueueDepth(int)                   {}
func (noop) ObserveCSVWrite(string, int, time.Duration) {}
