package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gostand/pkg/filter"
	"github.com/itohio/gostand/pkg/hx711"
)

// seqSource replays values in a loop.
type seqSource struct {
	values []int32
	reads  int
}

func (s *seqSource) Read() int32 {
	v := s.values[s.reads%len(s.values)]
	s.reads++
	return v
}

func newScale(values ...int32) (*Scale, *seqSource) {
	src := &seqSource{values: values}
	return New(src, filter.NewKalman(1, 100, 1000)), src
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name string
		want Mode
	}{
		{"average", ModeAverage},
		{"raw", ModeRaw},
		{"median", ModeMedian},
		{"MedAvg", ModeMedAvg},
		{" runavg ", ModeRunAvg},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, mustParse(t, got.String()))
	}

	_, err := ParseMode("mode")
	assert.Error(t, err)
}

func mustParse(t *testing.T, name string) Mode {
	m, err := ParseMode(name)
	require.NoError(t, err)
	return m
}

func TestScale_Begin(t *testing.T) {
	s, src := newScale(100)
	s.Begin(50)
	assert.Equal(t, 50, src.reads)
}

func TestScale_ReadAverage(t *testing.T) {
	s, src := newScale(10, 20, 30, 40)
	assert.Equal(t, 25.0, s.ReadAverage(4))
	assert.Equal(t, 4, src.reads)

	// n below one reads once.
	s.ReadAverage(0)
	assert.Equal(t, 5, src.reads)
}

func TestScale_ReadMedianClamps(t *testing.T) {
	s, src := newScale(5, 1, 4, 2, 3)
	assert.Equal(t, 4.0, s.ReadMedian(1), "n clamped to 3 reads: 5,1,4")
	assert.Equal(t, 3, src.reads)

	s, src = newScale(1)
	s.ReadMedian(100)
	assert.Equal(t, MaxSortSamples, src.reads)
}

func TestScale_ReadMedianEven(t *testing.T) {
	s, _ := newScale(40, 10, 30, 20)
	assert.Equal(t, 25.0, s.ReadMedian(4))
}

func TestScale_ReadMedAvg(t *testing.T) {
	values := []int32{1000, -900, 4, 5, 6, 7, 8, 1, 2, 3, 900, -1000, 9, 800, -800}
	s, src := newScale(values...)
	// Sorted: -1000 -900 -800 1 2 3 4 5 6 7 8 9 800 900 1000; indices 4..10 = 2..8
	assert.Equal(t, 5.0, s.ReadMedAvg(15))
	assert.Equal(t, 15, src.reads)
}

func TestScale_ReadRunAvg(t *testing.T) {
	s, _ := newScale(100, 200, 300)
	assert.Equal(t, 100.0, s.ReadRunAvg(3, 0))

	s, _ = newScale(100, 200, 300)
	assert.Equal(t, 300.0, s.ReadRunAvg(3, 1))

	s, _ = newScale(100, 200, 300)
	assert.Equal(t, 300.0, s.ReadRunAvg(3, 5))
}

func TestScale_ValueModes(t *testing.T) {
	values := []int32{10, 30, 20}
	tests := []struct {
		mode Mode
		want float64
	}{
		{ModeRaw, 10},
		{ModeAverage, 20},
		{ModeMedian, 20},
		{ModeMedAvg, 20},
		{ModeRunAvg, 20}, // alpha 0.5: 10 -> 20 -> 20
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			s, _ := newScale(values...)
			s.SetMode(tt.mode)
			assert.Equal(t, tt.mode, s.Mode())
			assert.Equal(t, tt.want, s.Value(3))
		})
	}
}

func TestScale_TareZeroesUnits(t *testing.T) {
	s, _ := newScale(84213)
	s.Begin(10)
	require.True(t, s.SetScale(21.5))

	s.Tare(10)
	assert.True(t, s.TareSet())
	assert.Equal(t, int32(84213), s.Offset())
	assert.Equal(t, 0.0, s.ToUnits(s.ReadAverage(10)))
	assert.Equal(t, 0.0, s.Units(10))
}

func TestScale_TareNegative(t *testing.T) {
	s, _ := newScale(-5000)
	s.Tare(3)
	assert.Equal(t, int32(-5000), s.Offset())
	assert.Equal(t, 0.0, s.Value(3))
}

func TestScale_SetScaleZeroRejected(t *testing.T) {
	s, _ := newScale(0)
	require.True(t, s.SetScale(4))
	assert.Equal(t, 4.0, s.Scale())

	assert.False(t, s.SetScale(0))
	assert.Equal(t, 4.0, s.Scale())
}

func TestScale_Units(t *testing.T) {
	s, _ := newScale(1100)
	s.SetOffset(100)
	require.True(t, s.SetScale(10))

	assert.Equal(t, 100.0, s.Units(5))
	assert.Equal(t, 100.0, s.ToUnits(1100))
	assert.Equal(t, -10.0, s.TareUnits())
}

func TestScale_Calibrate(t *testing.T) {
	src := &seqSource{values: []int32{500}}
	s := New(src, filter.NewKalman(1, 100, 1000))
	s.Tare(5)

	src.values = []int32{2500}
	s.Calibrate(1000, 5)
	assert.Equal(t, 2.0, s.Scale())
	assert.Equal(t, 1000.0, s.Units(5))
}

func TestScale_FilteredUnitsIndependentOfMode(t *testing.T) {
	s, _ := newScale(200)
	s.Begin(5)
	s.SetOffset(100)
	require.True(t, s.SetScale(2))

	s.ReadAverage(5)
	// Constant input: the estimator sits on the input.
	assert.Equal(t, 50.0, s.FilteredUnits())

	s.SetMode(ModeMedian)
	s.Units(3)
	assert.Equal(t, 50.0, s.FilteredUnits())
}

func TestScale_EstimatorRunsInEveryMode(t *testing.T) {
	s, _ := newScale(0, 1000)
	s.SetMode(ModeMedian)
	s.Units(3)
	assert.NotEqual(t, 0.0, s.ReadFiltered())
	assert.Equal(t, float64(1000), s.LastRaw())
}

func TestScale_WithSimulatedPart(t *testing.T) {
	mock := hx711.NewMock(func(hx711.Gain) int32 { return -1234 })
	s := New(hx711.New(mock, mock), filter.NewKalman(1, 100, 1000))

	s.Begin(3)
	s.Tare(5)
	assert.Equal(t, int32(-1234), s.Offset())
	assert.Equal(t, 0.0, s.Units(5))
}
