package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option adjusts how a Manager names and registers its collectors.
type Option func(*Manager)

// WithNamespace replaces the "mu3" metric name prefix. Empty keeps the default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRefreshInterval sets how often the gauge updaters sample.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithConstLabels attaches fixed labels, such as the deployment name, to
// every collector.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.constLabels = prometheus.Labels(labels)
		}
	}
}

// WithPrometheusRegistry registers the collectors on reg instead of the
// process default.
func WithPrometheusRegistry(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// Configure rebuilds the package collectors on a fresh registry. It must run
// before anything records, usually right after the configuration is loaded.
func Configure(opts ...Option) {
	reg := prometheus.NewRegistry()
	globalManager = NewManager(append(opts[:len(opts):len(opts)], WithPrometheusRegistry(reg))...)
	customRegistry = reg
}
