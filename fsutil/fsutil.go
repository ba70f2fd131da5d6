// Package fsutil is the narrow platform layer under the filesystem scanner
// and persistence backend. Everything above it is platform-agnostic.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tidewatch/tidewatch"
)

// EnsureDirectory makes sure path exists as a directory, creating it and any
// missing parents. It fails if path exists and is not a directory.
func EnsureDirectory(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%w: %s", tidewatch.ErrNotDir, path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return os.MkdirAll(path, 0o755)
}

// WriteFileAtomic writes value to tempPath and renames it onto finalPath.
// Both paths must live in the same directory; same-directory rename is the
// one operation filesystems guarantee to be atomic for concurrent readers,
// so a reader of finalPath sees either the previous complete content or
// value in full, never a prefix. On failure the temp artifact may be left
// behind; callers must keep temp paths out of their key space.
func WriteFileAtomic(tempPath, finalPath string, value []byte) error {
	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	if _, err := f.Write(value); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tempPath, finalPath)
}
