// Package config defines the storage location and behaviour configuration
// for statestore: the global storage root, the per-workspace storage root,
// the deferred-write flush cadence, and the in-memory test harness mode.
//
// Configuration is plain JSON, loaded once at startup and validated before
// use; there is no runtime reload.
package config
