package tidewatch

// ActionKind discriminates the variants of a QueuedAction.
type ActionKind int

const (
	// ActionRead marks a previously-unseen object that now exists.
	ActionRead ActionKind = iota
	// ActionUpdate marks an already-tracked object whose metadata changed.
	ActionUpdate
	// ActionDelete marks a tracked object that no longer resolves.
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// QueuedAction is one pending change proposed by a scanner. A scan cycle
// produces at most one action per object key; Read and Update/Delete are
// mutually exclusive for the same key within one cycle.
type QueuedAction struct {
	Kind ActionKind
	Key  ObjectKey

	// Metadata carries the current snapshot for Read and Update actions.
	// It is the zero value for Delete.
	Metadata ObjectMetadata
}

// ReadAction queues the initial ingestion of a newly discovered object.
func ReadAction(key ObjectKey, meta ObjectMetadata) QueuedAction {
	return QueuedAction{Kind: ActionRead, Key: key, Metadata: meta}
}

// UpdateAction queues a metadata change for an already-tracked object.
func UpdateAction(key ObjectKey, meta ObjectMetadata) QueuedAction {
	return QueuedAction{Kind: ActionUpdate, Key: key, Metadata: meta}
}

// DeleteAction queues the removal of an object that no longer resolves.
func DeleteAction(key ObjectKey) QueuedAction {
	return QueuedAction{Kind: ActionDelete, Key: key}
}
