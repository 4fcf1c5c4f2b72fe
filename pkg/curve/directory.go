// Package curve stores thrust curves in a byte-addressable memory.
//
// The memory starts with a fixed directory of MaxCurves entries, each a pair
// of little-endian int32 addresses (start, stop). Sample records follow at
// DataStart. A zero start address marks an unused slot and entries are filled
// contiguously from slot 0.
package curve

import (
	"encoding/binary"
	"fmt"
)

const (
	// MaxCurves is the number of directory slots.
	MaxCurves = 25
	// DirectoryAddress is where the directory lives.
	DirectoryAddress = 0
	// entrySize is two int32 addresses.
	entrySize = 8
	// DirectorySize is the encoded size of the directory.
	DirectorySize = MaxCurves * entrySize
	// DataStart is the first sample record address.
	DataStart = DirectoryAddress + DirectorySize
	// FullMark is the stop address past which no new curve is started.
	FullMark = 65500
)

// Entry bounds one curve. Stop is exclusive.
type Entry struct {
	Start uint32
	Stop  uint32
}

// Used reports whether the slot holds a curve.
func (e Entry) Used() bool {
	return e.Start != 0
}

// Len returns the number of bytes between Start and Stop.
func (e Entry) Len() uint32 {
	if e.Stop < e.Start {
		return 0
	}
	return e.Stop - e.Start
}

func (e Entry) String() string {
	return fmt.Sprintf("[%d, %d)", e.Start, e.Stop)
}

// Directory is the in-memory copy of the curve directory.
type Directory [MaxCurves]Entry

// Count returns the number of used slots before the first empty one.
func (d *Directory) Count() int {
	for i, e := range d {
		if !e.Used() {
			return i
		}
	}
	return MaxCurves
}

// Last returns the index of the most recent curve.
func (d *Directory) Last() (int, bool) {
	n := d.Count()
	if n == 0 {
		return 0, false
	}
	return n - 1, true
}

// Clear zeroes all slots.
func (d *Directory) Clear() {
	*d = Directory{}
}

// MarshalBinary encodes the directory as stored in memory.
func (d *Directory) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DirectorySize)
	for i, e := range d {
		binary.LittleEndian.PutUint32(buf[i*entrySize:], e.Start)
		binary.LittleEndian.PutUint32(buf[i*entrySize+4:], e.Stop)
	}
	return buf, nil
}

// UnmarshalBinary decodes a directory block.
func (d *Directory) UnmarshalBinary(buf []byte) error {
	if len(buf) < DirectorySize {
		return fmt.Errorf("directory block too short: %d bytes", len(buf))
	}
	for i := range d {
		d[i].Start = binary.LittleEndian.Uint32(buf[i*entrySize:])
		d[i].Stop = binary.LittleEndian.Uint32(buf[i*entrySize+4:])
	}
	return nil
}
