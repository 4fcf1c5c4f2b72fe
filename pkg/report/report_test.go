package report

import (
	"bufio"
	"bytes"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/eeprom"
)

func TestChecksum(t *testing.T) {
	assert.Equal(t, uint8(59), Checksum("data,0,0,100,"))
	assert.Equal(t, uint8(0), Checksum(""))
	// Wraps modulo 256.
	assert.Equal(t, uint8(254), Checksum("\xff\xff"))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		r    Record
		want string
	}{
		{
			name: "thrust",
			r:    Record{Curve: 0, Layout: curve.LayoutThrust, Sample: curve.Sample{Thrust: 100}},
			want: "$data,0,0,100,59;\n",
		},
		{
			name: "negative thrust",
			r:    Record{Curve: 3, Layout: curve.LayoutThrust, Sample: curve.Sample{Elapsed: 1250, Thrust: -12}},
			want: "$data,3,1250,-12," + itoa(Checksum("data,3,1250,-12,")) + ";\n",
		},
		{
			name: "pressure",
			r: Record{Curve: 1, Layout: curve.LayoutPressure,
				Sample: curve.Sample{Elapsed: 20, Thrust: 5, Pressure: 7}},
			want: "$data,1,20,5,7," + itoa(Checksum("data,1,20,5,7,")) + ";\n",
		},
		{
			name: "dual pressure",
			r: Record{Curve: 2, Layout: curve.LayoutDualPressure,
				Sample: curve.Sample{Elapsed: 20, Thrust: 5, Pressure: 7, Pressure2: 8, ThrustFiltered: 4}},
			want: "$data,2,20,5,7,8,4," + itoa(Checksum("data,2,20,5,7,8,4,")) + ";\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := Format(tt.r)
			assert.Equal(t, tt.want, line)

			got, err := Parse(line)
			require.NoError(t, err)
			assert.Equal(t, tt.r, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		err  error
	}{
		{"not a record", "$config,1,2;", ErrFormat},
		{"missing terminator", "$data,0,0,100,59", ErrFormat},
		{"bad checksum", "$data,0,0,100,60;", ErrChecksum},
		{"checksum out of range", "$data,0,0,100,300;", ErrFormat},
		{"wrong field count", "$data,0,0," + itoa(Checksum("data,0,0,")) + ";", ErrFormat},
		{"non numeric", "$data,0,x,100," + itoa(Checksum("data,0,x,100,")) + ";", ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestWriteCurve(t *testing.T) {
	store := curve.New(eeprom.NewRAM(4096), curve.LayoutThrust, 4096, nil)
	require.NoError(t, store.Begin(0))
	addr := store.NextAddress()
	for _, thrust := range []int32{100, 250, 80} {
		var err error
		addr, err = store.Append(addr, curve.Sample{Delta: 10, Thrust: thrust})
		require.NoError(t, err)
	}
	require.NoError(t, store.Close(0, addr))

	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, store))

	var got []Record
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		r, err := Parse(scanner.Text())
		require.NoError(t, err)
		got = append(got, r)
	}

	require.Len(t, got, 3)
	assert.Equal(t, int64(10), got[0].Sample.Elapsed)
	assert.Equal(t, int64(30), got[2].Sample.Elapsed)
	assert.Equal(t, int32(250), got[1].Sample.Thrust)
}

func itoa(v uint8) string {
	return strconv.Itoa(int(v))
}
