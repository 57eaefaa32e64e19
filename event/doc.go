// Package event provides the in-process event plumbing used by the storage
// lifecycle: a generic multi-subscriber Emitter for change / will-save /
// closed notifications, and a single-fire Signal for one-shot host lifecycle
// phases such as window-open.
//
// Delivery is synchronous and in-process only; there is no buffering, no
// replay (except Signal's fire-once latch semantics), and no cross-process
// transport.
package event
