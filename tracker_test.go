package tidewatch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/backends"
	"github.com/tidewatch/tidewatch/cache"
	"github.com/tidewatch/tidewatch/scanners"
)

func TestTracker_PollAcceptCycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 10), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	scanner, err := scanners.NewFilesystem(filepath.Join(dir, "*.txt"), "*")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}

	tracker, err := tidewatch.NewTracker(scanner, cache.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	actions, err := tracker.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != tidewatch.ActionRead {
		t.Fatalf("Expected one Read, got %v", actions)
	}

	if err := tracker.AcceptAll(actions); err != nil {
		t.Fatalf("AcceptAll failed: %v", err)
	}

	actions, err = tracker.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("Expected empty batch after accept, got %v", actions)
	}

	if tracker.HasPendingActions() {
		t.Error("filesystem scanner must never report buffered actions")
	}
}

// TestTracker_RenameIsDeleteThenRead checks the cycle-internal ordering: for
// a renamed object the delete of the old key is computed before the read of
// the new one, so the consumer never applies an update onto a stale key.
func TestTracker_RenameIsDeleteThenRead(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(oldPath, make([]byte, 10), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	scanner, err := scanners.NewFilesystem(filepath.Join(dir, "*.txt"), "*")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	tracker, err := tidewatch.NewTracker(scanner, cache.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	actions, err := tracker.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if err := tracker.AcceptAll(actions); err != nil {
		t.Fatalf("AcceptAll failed: %v", err)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	actions, err = tracker.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("Expected delete+read pair, got %v", actions)
	}
	if actions[0].Kind != tidewatch.ActionDelete || actions[0].Key != tidewatch.ObjectKey(oldPath) {
		t.Errorf("Expected Delete(%s) first, got %+v", oldPath, actions[0])
	}
	if actions[1].Kind != tidewatch.ActionRead || actions[1].Key != tidewatch.ObjectKey(newPath) {
		t.Errorf("Expected Read(%s) second, got %+v", newPath, actions[1])
	}
}

func TestTracker_WithoutDeletions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, make([]byte, 10), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	scanner, err := scanners.NewFilesystem(filepath.Join(dir, "*.txt"), "*")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	tracker, err := tidewatch.NewTracker(scanner, cache.NewMemoryStore(), tidewatch.WithoutDeletions())
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	actions, err := tracker.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if err := tracker.AcceptAll(actions); err != nil {
		t.Fatalf("AcceptAll failed: %v", err)
	}

	if err := os.Remove(target); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	actions, err = tracker.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("Deletion surfaced despite WithoutDeletions: %v", actions)
	}
}

// TestTracker_AcceptAllReportsEveryFailure folds a batch into a store that
// rejects all mutations: every action is still attempted and every failure
// surfaces in the joined error.
func TestTracker_AcceptAllReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()

	scanner, err := scanners.NewFilesystem(filepath.Join(dir, "*.txt"), "*")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	store, err := cache.OpenSQLiteStore(filepath.Join(dir, "tracked.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tracker, err := tidewatch.NewTracker(scanner, store)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	err = tracker.AcceptAll([]tidewatch.QueuedAction{
		tidewatch.ReadAction("a", tidewatch.ObjectMetadata{}),
		tidewatch.DeleteAction("b"),
	})
	if !errors.Is(err, tidewatch.ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	if got := strings.Count(err.Error(), tidewatch.ErrClosed.Error()); got != 2 {
		t.Errorf("Expected both failures in the joined error, got %d: %v", got, err)
	}
}

// TestTracker_DurableStoreRecovery replays the crash-recovery path: a second
// tracker over a durable store reloaded from the same backend must not
// re-propose already-accepted objects.
func TestTracker_DurableStoreRecovery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 10), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	backend := backends.NewMemory()

	store, err := cache.OpenDurableStore(ctx, backend)
	if err != nil {
		t.Fatalf("OpenDurableStore failed: %v", err)
	}
	scanner, err := scanners.NewFilesystem(filepath.Join(dir, "*.txt"), "*")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	tracker, err := tidewatch.NewTracker(scanner, store)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	actions, err := tracker.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if err := tracker.AcceptAll(actions); err != nil {
		t.Fatalf("AcceptAll failed: %v", err)
	}

	// "Restart": fresh store from the same backend, fresh tracker
	recovered, err := cache.OpenDurableStore(ctx, backend)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	restarted, err := tidewatch.NewTracker(scanner, recovered)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	actions, err = restarted.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("Recovered tracker re-proposed accepted objects: %v", actions)
	}
}
