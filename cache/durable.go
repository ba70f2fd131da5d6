package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidewatch/tidewatch"
	"github.com/tidwall/btree"
)

// Object keys are raw bytes while persistence keys are '/'-delimited
// strings, so keys are hex-encoded under this prefix.
const durableKeyPrefix = "objects/"

// DurableStore is a cached object store persisted through a
// PersistenceBackend. Mutations are write-through: an Update or Remove only
// succeeds once the backend committed it, so a restart reconstructs exactly
// the set of objects whose actions were accepted. Reads are served from an
// in-memory tree loaded at open time.
type DurableStore struct {
	mu      sync.RWMutex
	backend tidewatch.PersistenceBackend
	entries *btree.Map[tidewatch.ObjectKey, tidewatch.ObjectMetadata]
}

// OpenDurableStore loads the committed object table from backend.
func OpenDurableStore(ctx context.Context, backend tidewatch.PersistenceBackend) (*DurableStore, error) {
	ds := &DurableStore{
		backend: backend,
		entries: btree.NewMap[tidewatch.ObjectKey, tidewatch.ObjectMetadata](0),
	}

	keys, err := backend.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: loading durable store: %w", err)
	}

	for _, key := range keys {
		encoded, ok := strings.CutPrefix(key, durableKeyPrefix)
		if !ok {
			continue
		}

		objectKey, err := decodeObjectKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("cache: corrupt object key %q: %w", key, err)
		}

		value, err := backend.Get(ctx, key)
		if err != nil {
			// A key that disappeared between list and get was removed by
			// its single writer; nothing to restore.
			if errors.Is(err, tidewatch.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("cache: loading %q: %w", key, err)
		}

		var meta tidewatch.ObjectMetadata
		if err := json.Unmarshal(value, &meta); err != nil {
			return nil, fmt.Errorf("cache: corrupt metadata under %q: %w", key, err)
		}

		ds.entries.Set(objectKey, meta)
	}

	return ds, nil
}

func (ds *DurableStore) Contains(key tidewatch.ObjectKey) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	_, ok := ds.entries.Get(key)
	return ok
}

func (ds *DurableStore) Iterate(fn func(key tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) bool) {
	ds.mu.RLock()
	snapshot := ds.entries.Copy()
	ds.mu.RUnlock()

	snapshot.Scan(fn)
}

func (ds *DurableStore) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	return ds.entries.Len()
}

func (ds *DurableStore) Update(key tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) error {
	value, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := ds.backend.Put(ctx, encodeObjectKey(key), value).Wait(ctx); err != nil {
		return fmt.Errorf("cache: persisting %q: %w", meta.Path, err)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.entries.Set(key, meta)
	return nil
}

func (ds *DurableStore) Remove(key tidewatch.ObjectKey) error {
	err := ds.backend.Remove(context.Background(), encodeObjectKey(key))
	if err != nil && !errors.Is(err, tidewatch.ErrNotExist) {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.entries.Delete(key)
	return nil
}

func encodeObjectKey(key tidewatch.ObjectKey) string {
	return durableKeyPrefix + hex.EncodeToString([]byte(key))
}

func decodeObjectKey(encoded string) (tidewatch.ObjectKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return tidewatch.ObjectKey(raw), nil
}
