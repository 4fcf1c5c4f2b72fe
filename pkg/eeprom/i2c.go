package eeprom

import (
	"fmt"
	"time"

	"github.com/kidoman/embd"
)

const (
	// DefaultPageSize matches the 24LC512 page buffer.
	DefaultPageSize = 64
	// WriteCycle is the self-timed write cycle of 24LCxxx parts.
	WriteCycle = 5 * time.Millisecond
	// maxTransfer keeps reads within typical I2C driver buffers.
	maxTransfer = 32
)

// I2C is a 24LCxxx serial EEPROM with two-byte word addressing on an embd
// I2C bus.
type I2C struct {
	bus      embd.I2CBus
	addr     byte
	size     int
	pageSize int
	cycle    time.Duration
}

// NewI2C creates an EEPROM at the 7-bit device address addr with size
// bytes. pageSize <= 0 selects DefaultPageSize.
func NewI2C(bus embd.I2CBus, addr byte, size, pageSize int) *I2C {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &I2C{
		bus:      bus,
		addr:     addr,
		size:     size,
		pageSize: pageSize,
		cycle:    WriteCycle,
	}
}

// Size returns the memory size in bytes.
func (e *I2C) Size() int {
	return e.size
}

// ReadAt sets the word address with a dummy write then reads sequentially.
func (e *I2C) ReadAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, len(p), e.size); err != nil {
		return 0, err
	}

	n := 0
	for n < len(p) {
		chunk := min(len(p)-n, maxTransfer)
		addr := int(off) + n

		if err := e.bus.WriteBytes(e.addr, wordAddress(addr)); err != nil {
			return n, fmt.Errorf("failed to address eeprom at %d: %w", addr, err)
		}
		data, err := e.bus.ReadBytes(e.addr, chunk)
		if err != nil {
			return n, fmt.Errorf("failed to read eeprom at %d: %w", addr, err)
		}
		if len(data) < chunk {
			return n, fmt.Errorf("short eeprom read at %d: got %d of %d bytes", addr, len(data), chunk)
		}
		n += copy(p[n:], data)
	}

	return n, nil
}

// WriteAt splits p on page boundaries; a page write that crosses a boundary
// wraps around inside the page on these parts.
func (e *I2C) WriteAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, len(p), e.size); err != nil {
		return 0, err
	}

	n := 0
	for n < len(p) {
		addr := int(off) + n
		room := e.pageSize - addr%e.pageSize
		chunk := min(len(p)-n, room, maxTransfer-2)

		frame := append(wordAddress(addr), p[n:n+chunk]...)
		if err := e.bus.WriteBytes(e.addr, frame); err != nil {
			return n, fmt.Errorf("failed to write eeprom at %d: %w", addr, err)
		}
		time.Sleep(e.cycle)
		n += chunk
	}

	return n, nil
}

func wordAddress(addr int) []byte {
	return []byte{byte(addr >> 8), byte(addr)}
}
