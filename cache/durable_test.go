package cache

import (
	"context"
	"testing"

	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/backends"
)

func TestDurableStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	backend := backends.NewMemory()

	store, err := OpenDurableStore(ctx, backend)
	if err != nil {
		t.Fatalf("OpenDurableStore failed: %v", err)
	}

	raw := tidewatch.ObjectKey([]byte{0x2f, 0xff, 0x01})
	if err := store.Update("a", testMeta("a", 10)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Update(raw, testMeta("raw", 20)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// A fresh store over the same backend sees the committed table
	reopened, err := OpenDurableStore(ctx, backend)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}

	if reopened.Len() != 2 {
		t.Fatalf("Expected 2 entries after reopen, got %d", reopened.Len())
	}
	if !reopened.Contains("a") || !reopened.Contains(raw) {
		t.Error("entries lost across reopen")
	}

	reopened.Iterate(func(key tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) bool {
		if key == raw && meta.Size != 20 {
			t.Errorf("Expected size 20 for raw key, got %d", meta.Size)
		}
		return true
	})
}

func TestDurableStore_RemoveIsWriteThrough(t *testing.T) {
	ctx := context.Background()
	backend := backends.NewMemory()

	store, err := OpenDurableStore(ctx, backend)
	if err != nil {
		t.Fatalf("OpenDurableStore failed: %v", err)
	}

	if err := store.Update("a", testMeta("a", 10)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	keys, err := backend.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected empty backend after Remove, got %v", keys)
	}

	// Removing an untracked key is not an error: the backing entry is
	// already gone either way.
	if err := store.Remove("a"); err != nil {
		t.Errorf("Repeated Remove failed: %v", err)
	}
}

func TestDurableStore_UpdateOverwrites(t *testing.T) {
	ctx := context.Background()
	backend := backends.NewMemory()

	store, err := OpenDurableStore(ctx, backend)
	if err != nil {
		t.Fatalf("OpenDurableStore failed: %v", err)
	}

	if err := store.Update("a", testMeta("a", 10)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Update("a", testMeta("a", 50)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reopened, err := OpenDurableStore(ctx, backend)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}

	reopened.Iterate(func(_ tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) bool {
		if meta.Size != 50 {
			t.Errorf("Expected size 50 after overwrite, got %d", meta.Size)
		}
		return true
	})
}
