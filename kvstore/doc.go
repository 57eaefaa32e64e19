// Package kvstore provides the key-value store contract consumed by the
// storage lifecycle, plus its two implementations.
//
// # Overview
//
// A Store is an ordered string-to-string mapping with typed accessors
// (Get / GetBoolean / GetNumber with caller-supplied fallbacks), change
// notification, and an explicit Init / Close pair. Two implementations
// exist:
//
//   - MemoryStore: always available, zero setup, nothing persisted. Used as
//     the placeholder a storage lifecycle serves from before its durable
//     store is ready.
//   - SQLiteStore: durable, backed by a single-table transactional SQLite
//     file (modernc.org/sqlite, no CGO). Reads come from an in-memory view;
//     writes are committed in batches on a flush interval and unconditionally
//     on Close.
//
// # Write deferral
//
// SQLiteStore.Set and Delete return before the disk commit. The contract is
// durability at Close: every write accepted before Close returns has been
// committed (or, after the bounded close-flush retry window expires, reported
// as an error). Callers that need an intermediate commit can call Flush.
//
// # Hints
//
// When the caller knows the backing file cannot exist yet (a brand-new
// workspace folder), opening with HintDoesNotExist skips the existing-data
// load and takes the fast initial-write path.
package kvstore
