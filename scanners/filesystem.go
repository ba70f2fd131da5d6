// Package scanners holds the Scanner implementations: the filesystem
// reference scanner and the S3 bucket scanner. Each backend owns its full
// diff logic behind the shared contract.
package scanners

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/log"
)

// Filesystem is the reference Scanner over a local or mounted filesystem.
// The root pattern is a shell-style glob selecting files and directories;
// every directory it matches is watched recursively for files matching the
// object pattern. Object keys are the matched paths, byte for byte.
//
// Each NextActions call recomputes the full diff: a deletion/update pass
// over the cached entries (one stat per tracked object) followed by an
// insertion pass over the glob matches.
type Filesystem struct {
	rootPattern   string
	objectPattern string

	log *log.Logger
}

// NewFilesystem validates both patterns and returns the scanner. Malformed
// patterns fail here, never silently at scan time.
func NewFilesystem(rootPattern, objectPattern string, opts ...Option) (*Filesystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if !doublestar.ValidatePattern(rootPattern) {
		return nil, fmt.Errorf("%w: %q", tidewatch.ErrBadPattern, rootPattern)
	}
	if !doublestar.ValidatePattern(objectPattern) {
		return nil, fmt.Errorf("%w: %q", tidewatch.ErrBadPattern, objectPattern)
	}

	return &Filesystem{
		rootPattern:   rootPattern,
		objectPattern: objectPattern,
		log:           options.Logger,
	}, nil
}

func (s *Filesystem) LookupMetadata(ctx context.Context, key tidewatch.ObjectKey) (*tidewatch.ObjectMetadata, error) {
	path := string(key)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	meta := tidewatch.NewFileMetadata(path, info)
	return &meta, nil
}

func (s *Filesystem) ReadObject(ctx context.Context, key tidewatch.ObjectKey) ([]byte, error) {
	return os.ReadFile(string(key))
}

func (s *Filesystem) NextActions(ctx context.Context, deletionsEnabled bool, cached tidewatch.CachedStore) ([]tidewatch.QueuedAction, error) {
	var actions []tidewatch.QueuedAction

	if deletionsEnabled {
		deletions, err := s.deletionAndUpdateActions(cached)
		if err != nil {
			return nil, err
		}
		actions = append(actions, deletions...)
	}

	insertions, err := s.insertionActions(cached)
	if err != nil {
		return nil, err
	}
	actions = append(actions, insertions...)

	return actions, nil
}

// HasPendingActions is always false: the filesystem scanner recomputes the
// full diff on every call instead of streaming changes in chunks.
func (s *Filesystem) HasPendingActions() bool {
	return false
}

func (s *Filesystem) Describe() string {
	return fmt.Sprintf("FileSystem(%s)", s.rootPattern)
}

// deletionAndUpdateActions stats every tracked object. Not-found drives a
// Delete, a changed snapshot drives an Update. Any other stat failure aborts
// the cycle: it could be hiding a real deletion, and the engine owns retry
// policy.
func (s *Filesystem) deletionAndUpdateActions(cached tidewatch.CachedStore) ([]tidewatch.QueuedAction, error) {
	var actions []tidewatch.QueuedAction
	var scanErr error

	cached.Iterate(func(key tidewatch.ObjectKey, stored tidewatch.ObjectMetadata) bool {
		path := string(key)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				actions = append(actions, tidewatch.DeleteAction(key))
				return true
			}
			scanErr = err
			return false
		}

		current := tidewatch.NewFileMetadata(path, info)
		if stored.IsChanged(current) {
			actions = append(actions, tidewatch.UpdateAction(key, current))
		}
		return true
	})

	if scanErr != nil {
		return nil, scanErr
	}
	return actions, nil
}

// insertionActions proposes a Read for every matching path not yet tracked.
// A path that disappears between enumeration and stat is a lost race against
// a concurrent filesystem mutator, not an error.
func (s *Filesystem) insertionActions(cached tidewatch.CachedStore) ([]tidewatch.QueuedAction, error) {
	paths, err := s.matchingFilePaths()
	if err != nil {
		return nil, err
	}

	var actions []tidewatch.QueuedAction
	for _, path := range paths {
		key := tidewatch.ObjectKey(path)
		if cached.Contains(key) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.log.Warn("skipping %s: %v", path, err)
			}
			continue
		}

		actions = append(actions, tidewatch.ReadAction(key, tidewatch.NewFileMetadata(path, info)))
	}

	return actions, nil
}

// matchingFilePaths enumerates the root glob. Plain files are candidates as
// they are; every matched directory is expanded with a recursive
// **/<object-pattern> scan underneath it.
func (s *Filesystem) matchingFilePaths() ([]string, error) {
	entries, err := doublestar.FilepathGlob(s.rootPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", tidewatch.ErrBadPattern, s.rootPattern)
	}

	var result []string
	for _, entry := range entries {
		info, err := os.Stat(entry)
		if err != nil {
			s.log.Warn("skipping %s: %v", entry, err)
			continue
		}

		if !info.IsDir() {
			result = append(result, entry)
			continue
		}

		if !utf8.ValidString(entry) {
			s.log.Warn("non-unicode paths are not supported, ignoring: %q", entry)
			continue
		}

		nestedPattern := filepath.ToSlash(entry) + "/**/" + s.objectPattern
		nested, err := doublestar.FilepathGlob(nestedPattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", tidewatch.ErrBadPattern, nestedPattern)
		}
		for _, candidate := range nested {
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			result = append(result, candidate)
		}
	}

	return result, nil
}
