package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/statestore/errors"
)

// Registrar is the interface storage components use to register their
// metrics. Satisfied by Registry; a nil Registrar disables metrics.
type Registrar interface {
	Register(component, name string, collector prometheus.Collector) error
	Unregister(component, name string) bool
}

// Registry manages registration and lifecycle of statestore metrics on top
// of a dedicated Prometheus registry.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	registered         map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a metrics registry with Go runtime and process
// collectors pre-registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		prometheusRegistry: reg,
		registered:         make(map[string]prometheus.Collector),
	}
}

// PrometheusRegistry returns the underlying Prometheus registry for scraping.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Register registers a collector for a component under a stable
// "component.name" key. Registering the same key twice is an invalid error.
func (r *Registry) Register(component, name string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	if _, exists := r.registered[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for component %s", name, component),
			"Registry", "Register", "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInvalid(err, "Registry", "Register",
				fmt.Sprintf("prometheus conflict for metric %s", name))
		}
		return errors.WrapFatal(err, "Registry", "Register",
			"register collector with prometheus")
	}

	r.registered[key] = collector
	return nil
}

// Unregister removes a previously registered collector. Returns false when
// the key was never registered.
func (r *Registry) Unregister(component, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	collector, exists := r.registered[key]
	if !exists {
		return false
	}

	delete(r.registered, key)
	return r.prometheusRegistry.Unregister(collector)
}
