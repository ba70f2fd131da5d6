package backends

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidewatch/tidewatch"
	"github.com/tidwall/btree"
)

// Memory is an in-process PersistenceBackend, mostly for tests and for
// engines that only need durability across scanner restarts within one
// process. Puts still resolve through the future contract, just immediately.
type Memory struct {
	mu      sync.RWMutex
	entries *btree.Map[string, []byte]
}

func NewMemory() *Memory {
	return &Memory{
		entries: btree.NewMap[string, []byte](0),
	}
}

func (b *Memory) ListKeys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, b.entries.Len())
	b.entries.Scan(func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	return keys, nil
}

func (b *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.entries.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (b *Memory) Put(ctx context.Context, key string, value []byte) tidewatch.PutFuture {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	b.entries.Set(key, stored)

	return tidewatch.ResolvedFuture(nil)
}

func (b *Memory) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries.Delete(key); !ok {
		return fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
	}
	return nil
}
