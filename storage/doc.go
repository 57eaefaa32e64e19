// Package storage implements the lifecycle of persistent key-value storage
// for a host application, in two scopes: one global store shared across all
// sessions (GlobalService) and one store per opened workspace
// (WorkspaceService).
//
// # Lifecycle
//
// A service serves reads and writes from the moment it is constructed,
// initially against an in-memory placeholder. Initialize opens the durable
// SQLite-backed store exactly once, in the background when wired to the host
// lifecycle, and atomically swaps it in:
//
//	svc := storage.NewGlobalService(cfg,
//	    storage.WithLogger(logger),
//	    storage.WithHostLifecycle(hostLifecycle),
//	)
//	// reads/writes work immediately; persistence begins after the swap
//	v := svc.Get("editor.theme", "dark")
//
// Initialize is memoized: concurrent and repeated callers all observe the
// single underlying open. If the open fails the service logs the failure and
// keeps running against the placeholder; nothing crashes and nothing is
// retried.
//
// Writes issued before the swap land in the placeholder and are discarded
// when the durable store takes over. Durable persistence deliberately begins
// only at the swap.
//
// # Shutdown
//
// Close flushes and closes whichever store is active and fires the closed
// notification exactly once, even when closing before initialization ever
// resolved. The global service fires the will-save notification
// synchronously first, giving collaborators a final write window. When wired
// to a host lifecycle, Close joins the will-shutdown barrier so the host
// waits for the flush.
//
// If Close runs while an initialization is still in flight, the late durable
// store is flushed shut and abandoned when it arrives; it is never made
// active.
//
// # Session metadata
//
// On every successful initialization the global service derives install and
// session identity inside the durable store: a stable instance ID, the first
// session date, and the last/current session date pair, rotated so the last
// session date always reflects the immediately preceding session.
package storage
