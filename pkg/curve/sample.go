package curve

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Layout selects which fields a sample record carries.
type Layout int

const (
	// LayoutThrust stores delta and thrust.
	LayoutThrust Layout = iota
	// LayoutPressure adds casing pressure.
	LayoutPressure
	// LayoutDualPressure adds a second pressure and the filtered thrust.
	LayoutDualPressure
)

// ParseLayout parses a layout name as used in the config file.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "thrust":
		return LayoutThrust, nil
	case "pressure":
		return LayoutPressure, nil
	case "dual_pressure", "dual-pressure", "dual":
		return LayoutDualPressure, nil
	}
	return LayoutThrust, fmt.Errorf("unknown curve layout %q", s)
}

func (l Layout) String() string {
	switch l {
	case LayoutThrust:
		return "thrust"
	case LayoutPressure:
		return "pressure"
	case LayoutDualPressure:
		return "dual_pressure"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// RecordSize returns the encoded record size in bytes.
func (l Layout) RecordSize() uint32 {
	switch l {
	case LayoutPressure:
		return 12
	case LayoutDualPressure:
		return 20
	}
	return 8
}

// Fields returns the number of int32 fields in a record.
func (l Layout) Fields() int {
	return int(l.RecordSize() / 4)
}

// Sample is one curve record. Delta is the time since the previous record in
// milliseconds. Elapsed is never stored; Read accumulates it.
type Sample struct {
	Delta          int32
	Thrust         int32
	Pressure       int32
	Pressure2      int32
	ThrustFiltered int32
	Elapsed        int64
}

// encode writes s into buf using layout l. buf must hold RecordSize bytes.
func (l Layout) encode(buf []byte, s Sample) {
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(s.Delta))
	le.PutUint32(buf[4:], uint32(s.Thrust))
	if l >= LayoutPressure {
		le.PutUint32(buf[8:], uint32(s.Pressure))
	}
	if l >= LayoutDualPressure {
		le.PutUint32(buf[12:], uint32(s.Pressure2))
		le.PutUint32(buf[16:], uint32(s.ThrustFiltered))
	}
}

func (l Layout) decode(buf []byte) Sample {
	le := binary.LittleEndian
	s := Sample{
		Delta:  int32(le.Uint32(buf[0:])),
		Thrust: int32(le.Uint32(buf[4:])),
	}
	if l >= LayoutPressure {
		s.Pressure = int32(le.Uint32(buf[8:]))
	}
	if l >= LayoutDualPressure {
		s.Pressure2 = int32(le.Uint32(buf[12:]))
		s.ThrustFiltered = int32(le.Uint32(buf[16:]))
	}
	return s
}
