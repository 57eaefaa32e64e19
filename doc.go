// Package statestore provides lifecycle management for persistent key-value
// application state, split into two scopes: a single global store shared
// across all sessions and one store per opened workspace.
//
// # Architecture
//
// The module is organised around a small set of focused packages:
//
//	┌─────────────────────────────────────┐
//	│        storage.Service              │  Lifecycle state machine:
//	│ (Global / Workspace variants)       │  placeholder → durable swap
//	└─────────────────────────────────────┘
//	           ↓ owns exactly one
//	┌─────────────────────────────────────┐
//	│        kvstore.Store                │  In-memory placeholder or
//	│   (memory / SQLite backends)        │  durable SQLite file
//	└─────────────────────────────────────┘
//	           ↓ coordinated by
//	┌─────────────────────────────────────┐
//	│        host.Lifecycle               │  Window-open warmup signal,
//	│  (signals + shutdown barrier)       │  will-shutdown join barrier
//	└─────────────────────────────────────┘
//
// A storage service starts against an in-memory placeholder so reads and
// writes never block on disk. Initialization opens the durable store exactly
// once in the background and atomically swaps it in; failure to open durable
// storage degrades the service to best-effort in-memory operation rather than
// failing the host.
//
// # Packages
//
//   - storage: the lifecycle core (Service, GlobalService, WorkspaceService)
//   - kvstore: the key-value store contract plus memory and SQLite backends
//   - workspace: workspace identity and on-disk metadata descriptors
//   - host: host lifecycle signals consumed by the storage services
//   - config: storage location and behaviour configuration
//   - event: in-process event emitters used for change notification
//   - metric: Prometheus metrics registry
//   - errors: classified error handling (transient / invalid / fatal)
package statestore
