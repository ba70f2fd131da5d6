// Package backends holds the PersistenceBackend implementations. Each
// backend owns its full commit protocol behind the shared contract; the
// filesystem backend is the reference implementation.
package backends

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/fsutil"
	"github.com/tidewatch/tidewatch/log"
)

// Suffix of in-flight write artifacts. Paths bearing it never appear in
// ListKeys, so a crash mid-write leaves harmless litter, never a corrupt key.
const tempSuffix = ".tmp"

// Filesystem stores values as files under a root directory: logical key
// a/b/c maps to <root>/a/b/c. A put writes the full value to a sibling
// <final>.<id>.tmp unique to that put and renames it onto the final path;
// same-directory rename is atomic for concurrent readers, so Get returns
// either the previous complete value or the new one, never a fragment.
//
// Concurrent puts to the same key race on the final rename: last rename
// wins. The backend is meant as a single-writer-per-key recovery log.
type Filesystem struct {
	root string

	log       *log.Logger
	telemetry *tidewatch.Telemetry
}

// NewFilesystem creates the backend rooted at root, creating the directory
// when missing.
func NewFilesystem(root string, opts ...Option) (*Filesystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if err := fsutil.EnsureDirectory(root); err != nil {
		return nil, err
	}

	return &Filesystem{
		root:      root,
		log:       options.Logger,
		telemetry: options.Telemetry,
	}, nil
}

func (b *Filesystem) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string

	err := filepath.WalkDir(b.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if strings.HasSuffix(entry.Name(), tempSuffix) {
			return nil
		}

		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (b *Filesystem) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := os.ReadFile(b.keyToPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
		}
		return nil, err
	}
	return value, nil
}

func (b *Filesystem) Put(ctx context.Context, key string, value []byte) tidewatch.PutFuture {
	future, resolve := tidewatch.Promise()

	finalPath := b.keyToPath(key)
	tempPath := fmt.Sprintf("%s.%s%s", finalPath, uuid.NewString(), tempSuffix)

	if err := fsutil.EnsureDirectory(filepath.Dir(finalPath)); err != nil {
		resolve(err)
		return future
	}

	go func() {
		err := fsutil.WriteFileAtomic(tempPath, finalPath, value)
		if err != nil {
			b.log.Error("put %s: %v", key, err)
		} else {
			b.log.Debug("put %s (%d bytes)", key, len(value))
		}
		b.telemetry.PutCompleted("filesystem", err)
		resolve(err)
	}()

	return future
}

func (b *Filesystem) Remove(ctx context.Context, key string) error {
	if err := os.Remove(b.keyToPath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
		}
		return err
	}
	return nil
}

// keyToPath maps a '/'-delimited logical key to a platform path under root.
func (b *Filesystem) keyToPath(key string) string {
	path := b.root
	for _, component := range strings.Split(key, "/") {
		if component != "" {
			path = filepath.Join(path, component)
		}
	}
	return path
}
