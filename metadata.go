package tidewatch

import (
	"io/fs"
	"time"
)

// ObjectKey uniquely identifies an external object within one scanner's
// namespace. It is an opaque byte sequence carried in a string, so it
// round-trips exactly even for platform paths that are not valid UTF-8.
// Keys are produced by scanners and never mutated once stored.
type ObjectKey string

// ObjectMetadata is the last-observed snapshot of an object's
// identity-relevant attributes. It is the baseline a scanner diffs the
// current backend state against.
type ObjectMetadata struct {
	// Human-readable location of the object, if representable
	Path string `json:"path"`

	// Size in bytes (0 for directories)
	Size int64 `json:"size"`

	ModifiedAt time.Time `json:"modified_at"`

	IsDir bool `json:"is_dir,omitempty"`

	// When this snapshot was taken
	SeenAt time.Time `json:"seen_at"`
}

// NewFileMetadata builds an ObjectMetadata snapshot from a filesystem stat
// result.
func NewFileMetadata(path string, info fs.FileInfo) ObjectMetadata {
	return ObjectMetadata{
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		IsDir:      info.IsDir(),
		SeenAt:     time.Now(),
	}
}

// IsChanged reports whether current indicates a content or identity change
// relative to m. Its outcome is authoritative for emitting an Update action:
// SeenAt and Path differences alone never count as a change.
func (m ObjectMetadata) IsChanged(current ObjectMetadata) bool {
	if m.Size != current.Size {
		return true
	}
	if !m.ModifiedAt.Equal(current.ModifiedAt) {
		return true
	}
	return m.IsDir != current.IsDir
}
