package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/report"
)

// segment is one dump of a curve. A stand may dump the same curve index more
// than once, or reuse an index after an erase.
type segment struct {
	curve   int
	layout  curve.Layout
	samples []curve.Sample
}

// curveSet holds received segments in arrival order.
type curveSet struct {
	segments []*segment
	open     map[int]*segment
}

func newCurveSet() *curveSet {
	return &curveSet{open: make(map[int]*segment)}
}

// add appends r to the open segment of its curve. A record whose elapsed time
// goes backwards starts a new segment.
func (c *curveSet) add(r report.Record) {
	seg := c.open[r.Curve]
	if seg == nil || r.Sample.Elapsed < seg.samples[len(seg.samples)-1].Elapsed {
		seg = &segment{curve: r.Curve}
		c.segments = append(c.segments, seg)
		c.open[r.Curve] = seg
	}
	seg.samples = append(seg.samples, r.Sample)
	if r.Layout > seg.layout {
		seg.layout = r.Layout
	}
}

// collect gathers records until the channel closes, ctx is done or no record
// arrived for idle. A zero idle waits indefinitely.
func collect(ctx context.Context, records <-chan report.Record, idle time.Duration) *curveSet {
	set := newCurveSet()

	var timer *time.Timer
	var timeout <-chan time.Time
	if idle > 0 {
		timer = time.NewTimer(idle)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case r, ok := <-records:
			if !ok {
				return set
			}
			set.add(r)
			if timer != nil {
				timer.Reset(idle)
			}
		case <-timeout:
			return set
		case <-ctx.Done():
			return set
		}
	}
}

var csvHeader = []string{"segment", "curve", "elapsed_ms", "thrust", "pressure", "pressure2", "thrust_filtered"}

// writeCSV writes one row per sample. Columns beyond a segment's layout are
// left empty.
func writeCSV(w io.Writer, set *curveSet, maxPoints int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	var buf []curve.Sample
	row := make([]string, len(csvHeader))
	for n, seg := range set.segments {
		// segment, curve and elapsed, then the stored fields after delta
		used := 2 + seg.layout.Fields()
		buf = curve.Downsample(buf, seg.samples, maxPoints)
		for _, s := range buf {
			values := [...]int64{int64(n), int64(seg.curve), s.Elapsed, int64(s.Thrust), int64(s.Pressure), int64(s.Pressure2), int64(s.ThrustFiltered)}
			for i := range row {
				row[i] = ""
				if i < used {
					row[i] = strconv.FormatInt(values[i], 10)
				}
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeSummaries(w io.Writer, set *curveSet, logger *zap.Logger) {
	for n, seg := range set.segments {
		sum, err := curve.Summarize(seg.samples)
		if err != nil {
			logger.Warn("cannot summarize curve", zap.Int("segment", n), zap.Int("curve", seg.curve), zap.Error(err))
			continue
		}
		fmt.Fprintf(w, "segment %d, curve %d: %d samples over %v, peak %.0f at %v, mean %.1f (sd %.1f), impulse %.2f",
			n, seg.curve, sum.Samples, sum.Duration, sum.Peak, sum.PeakAt, sum.Mean, sum.StdDev, sum.Impulse)
		if seg.layout >= curve.LayoutPressure {
			fmt.Fprintf(w, ", max pressure %.0f", sum.MaxPressure)
		}
		fmt.Fprintln(w)
	}
}
