package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry *prometheus.Registry

// InitRegistry creates a fresh Prometheus registry and returns it, for
// pkg/metrics/prometheus.New to register collectors against. Call once at
// startup, before SetCollector.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return registry != nil
}

// GetRegistry returns the registry created by InitRegistry, or nil if
// metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Handler serves the registry's collectors in the Prometheus exposition
// format. Returns a 404 handler if metrics are disabled.
func Handler() http.Handler {
	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
