package toolchain

import (
	"errors"
	"io"
	"sync"
)

// TeeWriter duplicates writes to several writers. Writes are serialized so
// concurrent stream pumps never interleave within one Write call.
//
// A writer that fails is dropped and its error kept for Err. Write itself
// always consumes p, so a reader copying into the tee keeps draining its
// source while any writer is still healthy.
type TeeWriter struct {
	mu      sync.Mutex
	writers []io.Writer
	errs    []error
}

// NewTeeWriter creates a writer fanning out to every non-nil writer
func NewTeeWriter(writers ...io.Writer) *TeeWriter {
	t := &TeeWriter{}
	for _, w := range writers {
		if w != nil {
			t.writers = append(t.writers, w)
		}
	}
	return t
}

// Write writes p to every healthy writer
func (t *TeeWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	healthy := t.writers[:0]
	for _, w := range t.writers {
		n, err := w.Write(p)
		if err == nil && n != len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			t.errs = append(t.errs, err)
			continue
		}
		healthy = append(healthy, w)
	}
	t.writers = healthy
	return len(p), nil
}

// Err returns the errors of the writers dropped so far
func (t *TeeWriter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Join(t.errs...)
}
