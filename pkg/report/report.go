// Package report frames curve samples for the serial link.
//
// A record is one line:
//
//	$data,<curve>,<elapsed>,<thrust>[,<pressure>[,<pressure2>,<filtered>]],<chk>;
//
// where chk is the byte sum of "data,...," (everything between '$' and the
// checksum) modulo 256.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/itohio/gostand/pkg/curve"
)

var (
	// ErrFormat is returned for lines that are not data records.
	ErrFormat = errors.New("malformed record")
	// ErrChecksum is returned when the checksum does not match.
	ErrChecksum = errors.New("record checksum mismatch")
)

const prefix = "data,"

// Checksum returns the byte sum of s modulo 256.
func Checksum(s string) uint8 {
	var sum uint8
	for i := 0; i < len(s); i++ {
		sum += s[i]
	}
	return sum
}

// Record is one reported curve sample.
type Record struct {
	Curve  int
	Layout curve.Layout
	Sample curve.Sample
}

// Format returns the framed record including the trailing newline.
func Format(r Record) string {
	var b strings.Builder
	b.WriteString(prefix)
	writeInt(&b, int64(r.Curve))
	writeInt(&b, r.Sample.Elapsed)
	writeInt(&b, int64(r.Sample.Thrust))
	if r.Layout >= curve.LayoutPressure {
		writeInt(&b, int64(r.Sample.Pressure))
	}
	if r.Layout >= curve.LayoutDualPressure {
		writeInt(&b, int64(r.Sample.Pressure2))
		writeInt(&b, int64(r.Sample.ThrustFiltered))
	}
	body := b.String()
	return "$" + body + strconv.Itoa(int(Checksum(body))) + ";\n"
}

func writeInt(b *strings.Builder, v int64) {
	b.WriteString(strconv.FormatInt(v, 10))
	b.WriteByte(',')
}

// Parse decodes a framed record. Surrounding whitespace is ignored. The layout
// follows from the number of fields.
func Parse(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$"+prefix) || !strings.HasSuffix(line, ";") {
		return Record{}, fmt.Errorf("%w: %q", ErrFormat, line)
	}
	line = line[1 : len(line)-1]

	cut := strings.LastIndexByte(line, ',')
	body, chkText := line[:cut+1], line[cut+1:]
	chk, err := strconv.ParseUint(chkText, 10, 8)
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid checksum %q", ErrFormat, chkText)
	}
	if uint8(chk) != Checksum(body) {
		return Record{}, fmt.Errorf("%w: got %d, computed %d", ErrChecksum, chk, Checksum(body))
	}

	fields := strings.Split(strings.TrimSuffix(body[len(prefix):], ","), ",")
	var r Record
	switch len(fields) {
	case 3:
		r.Layout = curve.LayoutThrust
	case 4:
		r.Layout = curve.LayoutPressure
	case 6:
		r.Layout = curve.LayoutDualPressure
	default:
		return Record{}, fmt.Errorf("%w: %d fields", ErrFormat, len(fields))
	}

	values := make([]int64, len(fields))
	for i, f := range fields {
		bits := 32
		if i == 1 {
			bits = 64
		}
		v, err := strconv.ParseInt(f, 10, bits)
		if err != nil {
			return Record{}, fmt.Errorf("%w: field %d: %v", ErrFormat, i, err)
		}
		values[i] = v
	}

	r.Curve = int(values[0])
	r.Sample.Elapsed = values[1]
	r.Sample.Thrust = int32(values[2])
	if r.Layout >= curve.LayoutPressure {
		r.Sample.Pressure = int32(values[3])
	}
	if r.Layout >= curve.LayoutDualPressure {
		r.Sample.Pressure2 = int32(values[4])
		r.Sample.ThrustFiltered = int32(values[5])
	}
	return r, nil
}

// WriteCurve writes every sample of the curve at index to w.
func WriteCurve(w io.Writer, store *curve.Store, index int) error {
	layout := store.Layout()
	return store.ReadCurve(index, func(s curve.Sample) error {
		_, err := io.WriteString(w, Format(Record{Curve: index, Layout: layout, Sample: s}))
		if err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		return nil
	})
}

// WriteAll writes every stored curve to w in directory order.
func WriteAll(w io.Writer, store *curve.Store) error {
	for i := range store.Entries() {
		if err := WriteCurve(w, store, i); err != nil {
			return err
		}
	}
	return nil
}
