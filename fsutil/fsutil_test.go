package fsutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidewatch/tidewatch"
)

func TestEnsureDirectory(t *testing.T) {
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b", "c")
	if err := EnsureDirectory(nested); err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}
	// Idempotent on an existing directory
	if err := EnsureDirectory(nested); err != nil {
		t.Fatalf("EnsureDirectory on existing dir failed: %v", err)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := EnsureDirectory(file); !errors.Is(err, tidewatch.ErrNotDir) {
		t.Errorf("Expected ErrNotDir for a plain file, got %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "value.bin")
	temp := final + ".tmp"

	if err := WriteFileAtomic(temp, final, []byte("v1")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	got, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("Expected v1, got %q", got)
	}

	// The temp artifact must be gone after the rename
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Error("temp file left behind after successful commit")
	}

	// Overwrite replaces the full value
	if err := WriteFileAtomic(temp, final, []byte("second")); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}
	got, err = os.ReadFile(final)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Errorf("Expected second, got %q", got)
	}
}

func TestPipe_RoundTrip(t *testing.T) {
	pipe, err := NewPipe(Blocking, Blocking)
	if err != nil {
		t.Fatalf("NewPipe failed: %v", err)
	}
	defer pipe.Close()

	want := []byte("through the pipe")
	if _, err := pipe.Writer.Write(want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := make([]byte, len(want))
	if _, err := pipe.Reader.Read(got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
