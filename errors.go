package tidewatch

import (
	"errors"
	"sync"
)

// Standard errors that scanner and backend implementations should use.
var (
	// Lookup errors
	ErrNotExist = errors.New("tidewatch: object does not exist")

	// Configuration errors
	ErrBadPattern = errors.New("tidewatch: malformed glob pattern")
	ErrNotDir     = errors.New("tidewatch: path is not a directory")

	// Lifecycle errors
	ErrClosed = errors.New("tidewatch: store already closed")
)

// Errors collects failures from independent operations and joins them into a
// single error value.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
