package curve

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/eeprom"
)

// capacityProbes maps probe addresses to memory sizes in kbit, smallest first.
var capacityProbes = []struct {
	addr int64
	kbit int
}{
	{4093, 32},
	{8187, 64},
	{16375, 128},
	{32750, 256},
	{FullMark, 512},
}

// CheckMemoryErrors flips every byte in [0, last), verifies the inverse reads
// back and restores the original. It returns the number of bytes that failed.
// The run is destructive if interrupted.
func (s *Store) CheckMemoryErrors(last int64) (int, error) {
	var failed int
	for addr := int64(0); addr < last; addr++ {
		ok, err := flipByte(s.mem, addr)
		if err != nil {
			return failed, err
		}
		if !ok {
			failed++
		}
	}
	s.logger.Info("memory check done", zap.Int64("bytes", last), zap.Int("errors", failed))
	return failed, nil
}

// CheckWrite verifies a single byte at addr can be inverted and restored.
// Addresses beyond the memory report false.
func (s *Store) CheckWrite(addr int64) (bool, error) {
	ok, err := flipByte(s.mem, addr)
	if errors.Is(err, eeprom.ErrOutOfRange) {
		return false, nil
	}
	return ok, err
}

// ProbeCapacity returns the largest standard size in kbit whose probe
// address passes CheckWrite, or 0.
func (s *Store) ProbeCapacity() (int, error) {
	size := 0
	for _, p := range capacityProbes {
		ok, err := s.CheckWrite(p.addr)
		if err != nil {
			return size, err
		}
		if ok {
			size = p.kbit
		}
		s.logger.Debug("capacity probe", zap.Int64("address", p.addr), zap.Bool("ok", ok))
	}
	return size, nil
}

func flipByte(mem eeprom.Memory, addr int64) (bool, error) {
	var cur, got [1]byte
	if _, err := mem.ReadAt(cur[:], addr); err != nil {
		return false, fmt.Errorf("failed to read byte at %d: %w", addr, err)
	}

	inv := [1]byte{^cur[0]}
	if _, err := mem.WriteAt(inv[:], addr); err != nil {
		return false, fmt.Errorf("failed to write byte at %d: %w", addr, err)
	}
	if _, err := mem.ReadAt(got[:], addr); err != nil {
		return false, fmt.Errorf("failed to read back byte at %d: %w", addr, err)
	}
	if _, err := mem.WriteAt(cur[:], addr); err != nil {
		return false, fmt.Errorf("failed to restore byte at %d: %w", addr, err)
	}
	return got[0] == inv[0], nil
}
