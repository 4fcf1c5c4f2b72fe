package link

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/eeprom"
	"github.com/itohio/gostand/pkg/report"
)

func TestScan(t *testing.T) {
	input := strings.Join([]string{
		"ThrustCurve Nbr: 0",
		"$data,0,0,100,59;",
		"",
		"$data,0,10,120,60;", // bad checksum
		report.Format(report.Record{Curve: 0, Sample: curve.Sample{Elapsed: 20, Thrust: 140}}),
		"  " + report.Format(report.Record{Curve: 1, Layout: curve.LayoutPressure,
			Sample: curve.Sample{Elapsed: 5, Thrust: 7, Pressure: 3}}),
	}, "\n")

	out := make(chan report.Record, 10)
	scan(context.Background(), strings.NewReader(input), out, nil)
	close(out)

	var got []report.Record
	for r := range out {
		got = append(got, r)
	}

	require.Len(t, got, 3)
	assert.Equal(t, int32(100), got[0].Sample.Thrust)
	assert.Equal(t, int64(20), got[1].Sample.Elapsed)
	assert.Equal(t, 1, got[2].Curve)
	assert.Equal(t, curve.LayoutPressure, got[2].Layout)
	assert.Equal(t, int32(3), got[2].Sample.Pressure)
}

func TestScan_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan report.Record) // nobody reads

	done := make(chan struct{})
	go func() {
		defer close(done)
		scan(ctx, strings.NewReader("$data,0,0,100,59;\n$data,0,0,100,59;\n"), out, nil)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not stop")
	}
}

func TestNew(t *testing.T) {
	dev := New("/dev/ttyUSB0", 115200, 10, nil)
	assert.NotNil(t, dev)
	assert.Equal(t, "/dev/ttyUSB0", dev.port)
	assert.Equal(t, 115200, dev.baudRate)
	assert.Equal(t, 10, dev.bufSize)
	assert.NotNil(t, dev.Records())
	assert.False(t, dev.IsConnected())
	assert.NoError(t, dev.Close())
}

func TestNew_Defaults(t *testing.T) {
	dev := New("/dev/ttyUSB0", 0, 0, nil)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
}

func newTestStore(t *testing.T) *curve.Store {
	t.Helper()
	store := curve.New(eeprom.NewRAM(4096), curve.LayoutThrust, 4096, nil)
	for i, n := range []int{4, 2} {
		require.NoError(t, store.Begin(i))
		addr := store.NextAddress()
		for j := range n {
			var err error
			addr, err = store.Append(addr, curve.Sample{Delta: 10, Thrust: int32(100*i + j)})
			require.NoError(t, err)
		}
		require.NoError(t, store.Close(i, addr))
	}
	return store
}

func TestReplay(t *testing.T) {
	replay := NewReplay(newTestStore(t), 0, nil)
	require.NoError(t, replay.Connect())
	assert.True(t, replay.IsConnected())
	assert.Error(t, replay.Connect())

	var got []report.Record
	for r := range replay.Records() {
		got = append(got, r)
	}

	require.Len(t, got, 6)
	assert.Equal(t, 0, got[0].Curve)
	assert.Equal(t, int64(40), got[3].Sample.Elapsed)
	assert.Equal(t, 1, got[5].Curve)
	assert.Equal(t, int32(101), got[5].Sample.Thrust)

	require.NoError(t, replay.Close())
	assert.False(t, replay.IsConnected())
}

func TestReplay_CloseEarly(t *testing.T) {
	replay := NewReplay(newTestStore(t), time.Hour, nil)
	require.NoError(t, replay.Connect())

	done := make(chan error, 1)
	go func() { done <- replay.Close() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("replay did not stop")
	}

	_, ok := <-replay.Records()
	assert.False(t, ok)
}
