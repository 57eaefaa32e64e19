// Package metric provides the Prometheus metrics registry shared by
// statestore components.
//
// Each component registers its collectors under a stable "component.name"
// key, which gives duplicate detection on top of Prometheus's own and allows
// targeted unregistration when a component shuts down. Metrics are optional
// everywhere: components accept a Registrar via functional option and skip
// instrumentation when none is provided.
package metric
