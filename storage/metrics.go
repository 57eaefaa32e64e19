package storage

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/statestore/metric"
)

// serviceMetrics instruments one storage service. All metrics carry a scope
// const label (global or workspace) so both services share a registry.
type serviceMetrics struct {
	registrar metric.Registrar
	scope     string

	initializations prometheus.Counter
	initFailures    prometheus.Counter
	writes          prometheus.Counter
	deletes         prometheus.Counter
	closeDuration   prometheus.Histogram
}

func newServiceMetrics(reg metric.Registrar, scope string, logger *slog.Logger) *serviceMetrics {
	if reg == nil {
		return nil
	}

	labels := prometheus.Labels{"scope": scope}
	m := &serviceMetrics{
		registrar: reg,
		scope:     scope,
		initializations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "statestore",
			Subsystem:   "storage",
			Name:        "initializations_total",
			Help:        "Successful durable store initializations",
			ConstLabels: labels,
		}),
		initFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "statestore",
			Subsystem:   "storage",
			Name:        "initialization_failures_total",
			Help:        "Durable store initializations that failed and fell back to memory",
			ConstLabels: labels,
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "statestore",
			Subsystem:   "storage",
			Name:        "writes_total",
			Help:        "Values written through the storage service",
			ConstLabels: labels,
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "statestore",
			Subsystem:   "storage",
			Name:        "deletes_total",
			Help:        "Keys removed through the storage service",
			ConstLabels: labels,
		}),
		closeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "statestore",
			Subsystem:   "storage",
			Name:        "close_duration_seconds",
			Help:        "Time spent flushing and closing the active store",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
	}

	register := func(name string, c prometheus.Collector) prometheus.Collector {
		if err := reg.Register("storage", scope+"."+name, c); err != nil {
			logger.Warn("storage metric not registered", "metric", name, "error", err)
			return nil
		}
		return c
	}

	if register("initializations_total", m.initializations) == nil {
		m.initializations = nil
	}
	if register("initialization_failures_total", m.initFailures) == nil {
		m.initFailures = nil
	}
	if register("writes_total", m.writes) == nil {
		m.writes = nil
	}
	if register("deletes_total", m.deletes) == nil {
		m.deletes = nil
	}
	if register("close_duration_seconds", m.closeDuration) == nil {
		m.closeDuration = nil
	}

	return m
}

func (m *serviceMetrics) incInitializations() {
	if m != nil && m.initializations != nil {
		m.initializations.Inc()
	}
}

func (m *serviceMetrics) incInitFailures() {
	if m != nil && m.initFailures != nil {
		m.initFailures.Inc()
	}
}

func (m *serviceMetrics) incWrites() {
	if m != nil && m.writes != nil {
		m.writes.Inc()
	}
}

func (m *serviceMetrics) incDeletes() {
	if m != nil && m.deletes != nil {
		m.deletes.Inc()
	}
}

func (m *serviceMetrics) observeCloseDuration(seconds float64) {
	if m != nil && m.closeDuration != nil {
		m.closeDuration.Observe(seconds)
	}
}
