package tidewatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidewatch/tidewatch/log"
)

// Tracker drives one scanner against one object store. It serializes the two
// phases of a scan cycle, asking the scanner for pending actions and folding
// accepted actions back into the store, so the store is never mutated while
// a NextActions call is iterating it.
//
// The consumer between the two phases is the engine: it receives the batch
// from Poll, decides which actions it committed, and hands those back through
// Accept. Only accepted actions move the diff baseline forward.
type Tracker struct {
	mu      sync.Mutex
	scanner Scanner
	store   ObjectStore

	log       *log.Logger
	telemetry *Telemetry

	deletionsEnabled bool
}

func NewTracker(scanner Scanner, store ObjectStore, opts ...TrackerOption) (*Tracker, error) {
	options := newDefaultTrackerOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &Tracker{
		scanner:          scanner,
		store:            store,
		log:              options.Logger,
		telemetry:        options.Telemetry,
		deletionsEnabled: options.DeletionsEnabled,
	}, nil
}

// Poll asks the scanner for the next batch of pending actions. The returned
// batch is a proposal; nothing is recorded until the engine hands accepted
// actions back through Accept.
func (t *Tracker) Poll(ctx context.Context) ([]QueuedAction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	actions, err := t.scanner.NextActions(ctx, t.deletionsEnabled, t.store)
	if err != nil {
		return nil, fmt.Errorf("scan cycle on %s: %w", t.scanner.Describe(), err)
	}

	t.log.Debug("%s produced %d pending actions", t.scanner.Describe(), len(actions))
	t.telemetry.ScanCompleted(t.scanner.Describe(), actions)

	return actions, nil
}

// Accept folds one committed action into the object store, moving the diff
// baseline for the next cycle.
func (t *Tracker) Accept(action QueuedAction) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.accept(action)
}

// AcceptAll folds a batch of committed actions into the object store. Each
// action touches its own key, so one failure does not invalidate the rest:
// every action is attempted and the failures come back joined.
func (t *Tracker) AcceptAll(actions []QueuedAction) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var failures Errors
	for _, action := range actions {
		failures.Add(t.accept(action))
	}
	return failures.Errors()
}

func (t *Tracker) accept(action QueuedAction) error {
	switch action.Kind {
	case ActionRead, ActionUpdate:
		return t.store.Update(action.Key, action.Metadata)
	case ActionDelete:
		return t.store.Remove(action.Key)
	default:
		return fmt.Errorf("tidewatch: unknown action kind %d", action.Kind)
	}
}

// HasPendingActions reports whether the scanner buffered more actions beyond
// the last Poll result.
func (t *Tracker) HasPendingActions() bool {
	return t.scanner.HasPendingActions()
}
