package storage

// Reserved keys the storage lifecycle maintains in the durable store.
// Collaborators may read them; writing them is the lifecycle's job.
const (
	// IsNewStorageKey marks whether this store was created by the current
	// process. True only during the first initialization of a store;
	// flipped to false the next time the store opens, never back.
	IsNewStorageKey = "__storage.isNew"

	// InstanceIDKey holds the opaque install identifier, generated once and
	// stable for the lifetime of the install.
	InstanceIDKey = "session.instanceId"

	// FirstSessionDateKey holds the date of the first ever initialization.
	FirstSessionDateKey = "session.firstSessionDate"

	// LastSessionDateKey holds the previous session's date. Absent when the
	// current session is the first.
	LastSessionDateKey = "session.lastSessionDate"

	// CurrentSessionDateKey holds the date of the current initialization,
	// rotated into LastSessionDateKey by the next one.
	CurrentSessionDateKey = "session.currentSessionDate"
)

// MetadataFileName is the human-readable workspace descriptor written next
// to a workspace's durable store.
const MetadataFileName = "workspace.json"
