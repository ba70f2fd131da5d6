package tidewatch

import "context"

// CachedStore is the read view of the cached object table a scanner diffs
// against. Reads have no side effects. The store must not be mutated while a
// NextActions call is using it; the Tracker serializes the two phases.
type CachedStore interface {
	// Contains reports whether key is already tracked. Used by insertion
	// passes to suppress duplicate Read actions.
	Contains(key ObjectKey) bool

	// Iterate calls fn for every tracked (key, metadata) pair until fn
	// returns false. The walk is snapshot-stable: entries are neither
	// skipped nor duplicated even if the store is mutated mid-walk.
	Iterate(fn func(key ObjectKey, meta ObjectMetadata) bool)

	// Len returns the number of tracked objects.
	Len() int
}

// ObjectStore is a CachedStore the engine can fold accepted actions into.
// Scanners only propose actions; the store records what was actually
// committed.
type ObjectStore interface {
	CachedStore

	Update(key ObjectKey, meta ObjectMetadata) error

	Remove(key ObjectKey) error
}

// Scanner is the capability contract every connector backend implements to
// provide incremental change detection. A scanner instance is driven from a
// single coordinating goroutine; it is not required to tolerate concurrent
// NextActions calls.
type Scanner interface {
	// LookupMetadata returns the current metadata for key, or nil if the
	// object does not exist. Absence is not an error; only genuine I/O
	// failures are returned as errors.
	LookupMetadata(ctx context.Context, key ObjectKey) (*ObjectMetadata, error)

	// ReadObject returns the full current content of the object.
	ReadObject(ctx context.Context, key ObjectKey) ([]byte, error)

	// NextActions computes the batch of pending change actions given the
	// cached view. When deletionsEnabled, the deletion/update pass over the
	// cached entries runs before the insertion pass, so a renamed object is
	// observed as a paired delete and read rather than an update onto a
	// stale key.
	NextActions(ctx context.Context, deletionsEnabled bool, cached CachedStore) ([]QueuedAction, error)

	// HasPendingActions reports whether the backend has buffered actions
	// beyond what the last NextActions call returned. Backends that
	// recompute a full diff per call always return false.
	HasPendingActions() bool

	// Describe returns a short human-readable identity for logging.
	Describe() string
}
