package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/statestore/errors"
)

func newCounter(name string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "statestore",
		Name:      name,
		Help:      "test counter",
	})
}

func TestRegisterAndUnregister(t *testing.T) {
	r := NewRegistry()

	c := newCounter("register_total")
	require.NoError(t, r.Register("storage", "register_total", c))

	assert.True(t, r.Unregister("storage", "register_total"))
	assert.False(t, r.Unregister("storage", "register_total"))
}

func TestRegisterDuplicateKeyFails(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("storage", "dup_total", newCounter("dup_total")))

	err := r.Register("storage", "dup_total", newCounter("dup_total"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterPrometheusConflict(t *testing.T) {
	r := NewRegistry()

	// Same collector name under a different registry key still collides at
	// the Prometheus level.
	require.NoError(t, r.Register("storage", "conflict_total", newCounter("conflict_total")))

	err := r.Register("kvstore", "conflict_total", newCounter("conflict_total"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegistryExposesPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.PrometheusRegistry())

	// Runtime collectors are pre-registered.
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
