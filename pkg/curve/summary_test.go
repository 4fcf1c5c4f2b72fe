package curve

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	// Triangle: 0 -> 100 -> 0 over two seconds.
	samples := []Sample{
		{Thrust: 0, Pressure: 1, Elapsed: 0},
		{Thrust: 100, Pressure: 9, Elapsed: 1000},
		{Thrust: 0, Pressure: 3, Elapsed: 2000},
	}

	sum, err := Summarize(samples)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Samples)
	assert.Equal(t, 2*time.Second, sum.Duration)
	assert.Equal(t, 100.0, sum.Peak)
	assert.Equal(t, time.Second, sum.PeakAt)
	assert.InDelta(t, 33.333, sum.Mean, 1e-3)
	assert.InDelta(t, 100.0, sum.Impulse, 1e-9)
	assert.Equal(t, 9.0, sum.MaxPressure)
	assert.Greater(t, sum.StdDev, 0.0)
}

func TestSummarize_Single(t *testing.T) {
	sum, err := Summarize([]Sample{{Thrust: 42, Elapsed: 10}})
	require.NoError(t, err)
	assert.Equal(t, 42.0, sum.Peak)
	assert.Equal(t, 0.0, sum.Impulse)
	assert.Equal(t, 0.0, sum.StdDev)
}

func TestSummarize_Errors(t *testing.T) {
	_, err := Summarize(nil)
	assert.True(t, errors.Is(err, ErrNoSamples))

	_, err = Summarize([]Sample{{Elapsed: 10}, {Elapsed: 5}})
	assert.Error(t, err)
}

func TestSummarize_FromStore(t *testing.T) {
	s, _ := newStore(t, LayoutThrust)
	require.NoError(t, s.Begin(0))
	addr := s.NextAddress()
	for _, thrust := range []int32{10, 20, 30, 20, 10} {
		var err error
		addr, err = s.Append(addr, Sample{Delta: 500, Thrust: thrust})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close(0, addr))

	samples, err := s.Samples(0)
	require.NoError(t, err)
	sum, err := Summarize(samples)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, sum.Duration)
	assert.Equal(t, 30.0, sum.Peak)
	assert.InDelta(t, 40.0, sum.Impulse, 1e-9)
}
