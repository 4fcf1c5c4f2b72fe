package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/report"
)

func records() []report.Record {
	return []report.Record{
		{Curve: 0, Sample: curve.Sample{Elapsed: 0, Thrust: 10}},
		{Curve: 0, Sample: curve.Sample{Elapsed: 10, Thrust: 30}},
		{Curve: 2, Layout: curve.LayoutPressure, Sample: curve.Sample{Elapsed: 0, Thrust: 5, Pressure: 7}},
		{Curve: 0, Sample: curve.Sample{Elapsed: 20, Thrust: 20}},
	}
}

func TestCollect_UntilClosed(t *testing.T) {
	ch := make(chan report.Record, 10)
	for _, r := range records() {
		ch <- r
	}
	close(ch)

	set := collect(context.Background(), ch, 0)

	require.Len(t, set.segments, 2)
	assert.Equal(t, 0, set.segments[0].curve)
	assert.Len(t, set.segments[0].samples, 3)
	assert.Equal(t, 2, set.segments[1].curve)
	assert.Equal(t, curve.LayoutPressure, set.segments[1].layout)
}

func TestCurveSet_RepeatedDump(t *testing.T) {
	set := newCurveSet()
	for _, elapsed := range []int64{0, 10, 20, 0, 10, 20, 30} {
		set.add(report.Record{Curve: 3, Sample: curve.Sample{Elapsed: elapsed, Thrust: int32(elapsed)}})
	}

	require.Len(t, set.segments, 2)
	assert.Len(t, set.segments[0].samples, 3)
	assert.Len(t, set.segments[1].samples, 4)
	for _, seg := range set.segments {
		assert.Equal(t, 3, seg.curve)
		_, err := curve.Summarize(seg.samples)
		assert.NoError(t, err)
	}
}

func TestCollect_Idle(t *testing.T) {
	ch := make(chan report.Record, 1)
	ch <- records()[0]

	done := make(chan *curveSet)
	go func() { done <- collect(context.Background(), ch, 20*time.Millisecond) }()

	select {
	case set := <-done:
		require.Len(t, set.segments, 1)
		assert.Equal(t, 0, set.segments[0].curve)
	case <-time.After(2 * time.Second):
		t.Fatal("collect did not stop when idle")
	}
}

func TestWriteCSV(t *testing.T) {
	set := newCurveSet()
	for _, r := range records() {
		set.add(r)
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, set, 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "segment,curve,elapsed_ms,thrust,pressure,pressure2,thrust_filtered", lines[0])
	assert.Equal(t, "0,0,0,10,,,", lines[1])
	assert.Equal(t, "0,0,20,20,,,", lines[3])
	assert.Equal(t, "1,2,0,5,7,,", lines[4])
}

func TestWriteCSV_Downsampled(t *testing.T) {
	set := newCurveSet()
	for i := range 10 {
		set.add(report.Record{Curve: 1, Sample: curve.Sample{Elapsed: int64(i * 10), Thrust: int32(i)}})
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, set, 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0,1,90,9,,,", lines[3])
}
