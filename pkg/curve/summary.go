package curve

import (
	"errors"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when summarizing an empty curve.
var ErrNoSamples = errors.New("curve has no samples")

// Summary describes a recorded burn in stored thrust units.
type Summary struct {
	Samples     int
	Duration    time.Duration
	Peak        float64
	PeakAt      time.Duration
	Mean        float64
	StdDev      float64
	Impulse     float64 // thrust units times seconds
	MaxPressure float64
}

// Summarize computes burn statistics over samples as returned by Read.
func Summarize(samples []Sample) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrNoSamples
	}

	t := make([]float64, len(samples))
	thrust := make([]float64, len(samples))
	pressure := make([]float64, len(samples))
	for i, s := range samples {
		t[i] = float64(s.Elapsed) / 1000
		thrust[i] = float64(s.Thrust)
		pressure[i] = float64(s.Pressure)
	}
	if !sort.Float64sAreSorted(t) {
		return Summary{}, errors.New("curve time is not monotonic")
	}

	peak := floats.MaxIdx(thrust)
	mean, std := stat.MeanStdDev(thrust, nil)
	sum := Summary{
		Samples:     len(samples),
		Duration:    time.Duration(samples[len(samples)-1].Elapsed-samples[0].Elapsed) * time.Millisecond,
		Peak:        thrust[peak],
		PeakAt:      time.Duration(samples[peak].Elapsed) * time.Millisecond,
		Mean:        mean,
		MaxPressure: floats.Max(pressure),
	}
	if len(samples) > 1 {
		sum.StdDev = std
		sum.Impulse = integrate.Trapezoidal(t, thrust)
	}
	return sum, nil
}
