package fsutil

import (
	"errors"
	"os"
)

// PipeMode selects the blocking behaviour of one end of a pipe.
type PipeMode int

const (
	Blocking PipeMode = iota
	NonBlocking
)

// Pipe is an OS-level pipe with the blocking behaviour of each end chosen at
// creation time.
type Pipe struct {
	Reader *os.File
	Writer *os.File
}

// NewPipe creates a pipe. Non-blocking ends are configured per platform; on
// platforms without non-blocking anonymous pipes the request fails rather
// than silently degrading.
func NewPipe(reader, writer PipeMode) (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	if reader == NonBlocking {
		if err := setNonBlocking(r); err != nil {
			r.Close()
			w.Close()
			return nil, err
		}
	}
	if writer == NonBlocking {
		if err := setNonBlocking(w); err != nil {
			r.Close()
			w.Close()
			return nil, err
		}
	}

	return &Pipe{Reader: r, Writer: w}, nil
}

// Close releases both ends.
func (p *Pipe) Close() error {
	return errors.Join(p.Reader.Close(), p.Writer.Close())
}
