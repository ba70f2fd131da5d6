package tidewatch

import "context"

// PutFuture resolves exactly once with the outcome of an asynchronous put.
// The channel is buffered; the producer never blocks on an absent consumer.
type PutFuture <-chan error

// Wait blocks until the put completes or ctx is done. An in-flight write is
// not cancelled by ctx expiring; the commit still either completes fully or
// not at all.
func (f PutFuture) Wait(ctx context.Context) error {
	select {
	case err := <-f:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Promise returns an unresolved PutFuture and the function that resolves it.
// The resolve function must be called exactly once.
func Promise() (PutFuture, func(error)) {
	ch := make(chan error, 1)
	return ch, func(err error) {
		ch <- err
		close(ch)
	}
}

// ResolvedFuture returns a PutFuture that already completed with err.
func ResolvedFuture(err error) PutFuture {
	future, resolve := Promise()
	resolve(err)
	return future
}

// PersistenceBackend is the capability contract for durable key-value
// storage. Keys are '/'-delimited logical hierarchies; values are opaque
// bytes. A reader never observes a partially written value: a key holds
// either the previous complete value or the new complete value.
//
// Put may execute on a background goroutine and completes independently of
// concurrent puts to other keys and of Get/ListKeys calls. Concurrent puts
// to the same key are last-writer-wins with no conflict detection; the
// backend is meant to be used as a single-writer-per-key recovery log.
type PersistenceBackend interface {
	// ListKeys returns all committed keys. Implementation-internal
	// temporary artifacts never appear in the result.
	ListKeys(ctx context.Context) ([]string, error)

	// Get returns the committed value under key, or an error wrapping
	// ErrNotExist if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put durably commits value under key and reports completion through
	// the returned future. The caller is not blocked on the physical write.
	Put(ctx context.Context, key string, value []byte) PutFuture

	// Remove deletes the value under key.
	Remove(ctx context.Context, key string) error
}
