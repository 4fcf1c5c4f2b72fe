package curve

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/eeprom"
)

var (
	// ErrOutOfSpace is returned when a record would cross the memory capacity.
	ErrOutOfSpace = errors.New("curve memory full")
	// ErrIndexRange is returned for directory indexes outside [0, MaxCurves).
	ErrIndexRange = errors.New("curve index out of range")
)

// Store owns the directory cache and is the only writer of curve bytes.
// A Store is not safe for concurrent use.
type Store struct {
	mem      eeprom.Memory
	layout   Layout
	capacity uint32
	logger   *zap.Logger

	dir Directory
	buf []byte
}

// New creates a Store over mem. capacity is the memory size in bytes; zero
// leaves bounds checking to the memory itself. The directory is not loaded.
func New(mem eeprom.Memory, layout Layout, capacity uint32, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		mem:      mem,
		layout:   layout,
		capacity: capacity,
		logger:   logger,
		buf:      make([]byte, layout.RecordSize()),
	}
}

// Layout returns the record layout.
func (s *Store) Layout() Layout {
	return s.layout
}

// Capacity returns the configured memory size in bytes.
func (s *Store) Capacity() uint32 {
	return s.capacity
}

// LoadDirectory reads the directory block into the cache.
func (s *Store) LoadDirectory() error {
	buf := make([]byte, DirectorySize)
	if _, err := s.mem.ReadAt(buf, DirectoryAddress); err != nil {
		return fmt.Errorf("failed to read curve directory: %w", err)
	}
	if err := s.dir.UnmarshalBinary(buf); err != nil {
		return fmt.Errorf("failed to decode curve directory: %w", err)
	}
	s.logger.Debug("curve directory loaded", zap.Int("curves", s.dir.Count()))
	return nil
}

// SaveDirectory writes the cached directory as one block.
func (s *Store) SaveDirectory() error {
	buf, _ := s.dir.MarshalBinary()
	if _, err := s.mem.WriteAt(buf, DirectoryAddress); err != nil {
		return fmt.Errorf("failed to write curve directory: %w", err)
	}
	return nil
}

// ClearDirectory forgets every curve in the cache. Call SaveDirectory to
// persist it. Sample bytes are left in place.
func (s *Store) ClearDirectory() {
	s.dir.Clear()
}

// Entry returns the directory slot at index.
func (s *Store) Entry(index int) (Entry, error) {
	if index < 0 || index >= MaxCurves {
		return Entry{}, fmt.Errorf("%w: %d", ErrIndexRange, index)
	}
	return s.dir[index], nil
}

// Entries returns the used slots in order.
func (s *Store) Entries() []Entry {
	n := s.dir.Count()
	out := make([]Entry, n)
	copy(out, s.dir[:n])
	return out
}

// LastIndex returns the index of the most recent curve, false if none.
func (s *Store) LastIndex() (int, bool) {
	return s.dir.Last()
}

// NextAddress returns where the next curve starts.
func (s *Store) NextAddress() uint32 {
	last, ok := s.dir.Last()
	if !ok {
		return DataStart
	}
	e := s.dir[last]
	return max(e.Stop, e.Start, DataStart)
}

// CanRecord reports whether a new curve may be started: a directory slot is
// free, the last curve stops at or below FullMark and one more record fits in
// the memory.
func (s *Store) CanRecord() bool {
	if s.capacity > 0 && uint64(s.NextAddress())+uint64(s.layout.RecordSize()) > uint64(s.capacity) {
		return false
	}
	last, ok := s.dir.Last()
	if !ok {
		return true
	}
	if last == MaxCurves-1 {
		return false
	}
	return s.dir[last].Stop <= FullMark
}

// Begin opens the curve at index, starting at NextAddress. The directory is
// persisted by Close.
func (s *Store) Begin(index int) error {
	if index < 0 || index >= MaxCurves {
		return fmt.Errorf("%w: %d", ErrIndexRange, index)
	}
	start := s.NextAddress()
	s.dir[index] = Entry{Start: start, Stop: start}
	s.logger.Info("curve started", zap.Int("curve", index), zap.Uint32("start", start))
	return nil
}

// Append writes one record at addr and returns the address of the next one.
func (s *Store) Append(addr uint32, sample Sample) (uint32, error) {
	size := s.layout.RecordSize()
	if s.capacity > 0 && uint64(addr)+uint64(size) > uint64(s.capacity) {
		return addr, fmt.Errorf("%w: record at %d", ErrOutOfSpace, addr)
	}

	s.layout.encode(s.buf, sample)
	if _, err := s.mem.WriteAt(s.buf, int64(addr)); err != nil {
		return addr, fmt.Errorf("failed to write sample at %d: %w", addr, err)
	}
	return addr + size, nil
}

// Close sets the stop address of the curve at index and saves the directory.
func (s *Store) Close(index int, stop uint32) error {
	if index < 0 || index >= MaxCurves {
		return fmt.Errorf("%w: %d", ErrIndexRange, index)
	}
	s.dir[index].Stop = stop
	if err := s.SaveDirectory(); err != nil {
		return err
	}
	s.logger.Info("curve closed",
		zap.Int("curve", index),
		zap.Uint32("start", s.dir[index].Start),
		zap.Uint32("stop", stop))
	return nil
}

// EraseLast removes the most recent curve from the directory. It returns
// false without touching memory when there is no curve.
func (s *Store) EraseLast() (bool, error) {
	last, ok := s.dir.Last()
	if !ok {
		return false, nil
	}
	erased := s.dir[last]
	s.dir[last] = Entry{}
	if err := s.SaveDirectory(); err != nil {
		s.dir[last] = erased
		return false, err
	}
	s.logger.Info("curve erased", zap.Int("curve", last))
	return true, nil
}

// Read streams the records in [start, stop) to emit in storage order.
// Elapsed accumulates the deltas. Iteration stops at the first emit error.
func (s *Store) Read(start, stop uint32, emit func(Sample) error) error {
	size := s.layout.RecordSize()
	buf := make([]byte, size)

	var elapsed int64
	for addr := start; uint64(addr)+uint64(size) <= uint64(stop); addr += size {
		if _, err := s.mem.ReadAt(buf, int64(addr)); err != nil {
			return fmt.Errorf("failed to read sample at %d: %w", addr, err)
		}
		sample := s.layout.decode(buf)
		elapsed += int64(sample.Delta)
		sample.Elapsed = elapsed
		if err := emit(sample); err != nil {
			return err
		}
	}
	return nil
}

// ReadCurve streams the curve at index.
func (s *Store) ReadCurve(index int, emit func(Sample) error) error {
	e, err := s.Entry(index)
	if err != nil {
		return err
	}
	if !e.Used() {
		return nil
	}
	return s.Read(e.Start, e.Stop, emit)
}

// Samples collects the curve at index.
func (s *Store) Samples(index int) ([]Sample, error) {
	var out []Sample
	err := s.ReadCurve(index, func(sample Sample) error {
		out = append(out, sample)
		return nil
	})
	return out, err
}
