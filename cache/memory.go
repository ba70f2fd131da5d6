// Package cache provides the cached-object stores scanners diff against:
// the table of last-observed metadata per object key. The engine folds
// accepted actions into a store; scanners only read it.
package cache

import (
	"sync"

	"github.com/tidewatch/tidewatch"
	"github.com/tidwall/btree"
)

// MemoryStore is the in-memory cached object store. Keys iterate in byte
// order. Iterate walks a copy-on-write snapshot of the tree, so a walk in
// progress is unaffected by concurrent mutation and never skips or
// duplicates entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries *btree.Map[tidewatch.ObjectKey, tidewatch.ObjectMetadata]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: btree.NewMap[tidewatch.ObjectKey, tidewatch.ObjectMetadata](0),
	}
}

func (ms *MemoryStore) Contains(key tidewatch.ObjectKey) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, ok := ms.entries.Get(key)
	return ok
}

func (ms *MemoryStore) Get(key tidewatch.ObjectKey) (tidewatch.ObjectMetadata, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.entries.Get(key)
}

func (ms *MemoryStore) Iterate(fn func(key tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) bool) {
	ms.mu.RLock()
	snapshot := ms.entries.Copy()
	ms.mu.RUnlock()

	snapshot.Scan(fn)
}

func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.entries.Len()
}

func (ms *MemoryStore) Update(key tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries.Set(key, meta)
	return nil
}

func (ms *MemoryStore) Remove(key tidewatch.ObjectKey) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries.Delete(key)
	return nil
}
