// Package eeprom provides byte-addressable non-volatile memories for the
// curve store.
package eeprom

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrOutOfRange is returned for accesses past the end of a memory.
var ErrOutOfRange = errors.New("address out of range")

// Memory is a byte-addressable memory. Reads and writes are synchronous and
// either transfer the whole buffer or fail.
type Memory interface {
	io.ReaderAt
	io.WriterAt
}

var (
	_ Memory = (*RAM)(nil)
	_ Memory = (*I2C)(nil)
	_ Memory = (*os.File)(nil)
)

// RAM is a volatile in-memory Memory, used by tests and dry runs.
type RAM struct {
	mu  sync.RWMutex
	buf []byte
}

// NewRAM creates a zero filled RAM of size bytes.
func NewRAM(size int) *RAM {
	return &RAM{buf: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *RAM) Size() int {
	return len(m.buf)
}

// ReadAt implements io.ReaderAt.
func (m *RAM) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := checkRange(off, len(p), len(m.buf)); err != nil {
		return 0, err
	}
	return copy(p, m.buf[off:]), nil
}

// WriteAt implements io.WriterAt.
func (m *RAM) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkRange(off, len(p), len(m.buf)); err != nil {
		return 0, err
	}
	return copy(m.buf[off:], p), nil
}

func checkRange(off int64, n, size int) error {
	if off < 0 || off+int64(n) > int64(size) {
		return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrOutOfRange, off, off+int64(n), size)
	}
	return nil
}

// OpenImage opens (creating if needed) a file backed memory image of size
// bytes. A new image reads as zeros, like an erased directory.
func OpenImage(path string, size int64) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory image %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat memory image %s: %w", path, err)
	}
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to size memory image %s: %w", path, err)
		}
	}

	return f, nil
}
