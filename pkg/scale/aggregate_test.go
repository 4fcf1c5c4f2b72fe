package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i * 10)
	}
	return xs
}

func TestInsertionSort(t *testing.T) {
	xs := []float64{5, -1, 3, 3, 0, 12, -7}
	InsertionSort(xs)
	assert.Equal(t, []float64{-7, -1, 0, 3, 3, 5, 12}, xs)

	var empty []float64
	InsertionSort(empty)
	assert.Empty(t, empty)
}

func TestMedian(t *testing.T) {
	for n := MinSortSamples; n <= MaxSortSamples; n++ {
		xs := seq(n)
		var want float64
		if n%2 == 1 {
			want = xs[n/2]
		} else {
			want = (xs[n/2-1] + xs[n/2]) / 2
		}
		assert.Equal(t, want, Median(xs), "n=%d", n)
	}

	assert.Equal(t, 20.0, Median([]float64{10, 20, 30}))
	assert.Equal(t, 25.0, Median([]float64{10, 20, 30, 40}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestTrimmedMean(t *testing.T) {
	tests := []struct {
		n      int
		lo, hi int
	}{
		{n: 3, lo: 1, hi: 1},
		{n: 4, lo: 1, hi: 2},
		{n: 5, lo: 1, hi: 3},
		{n: 6, lo: 2, hi: 3},
		{n: 10, lo: 3, hi: 6},
		{n: 15, lo: 4, hi: 10},
	}

	for _, tt := range tests {
		lo, hi := trimBounds(tt.n)
		assert.Equal(t, tt.lo, lo, "n=%d", tt.n)
		assert.Equal(t, tt.hi, hi, "n=%d", tt.n)
	}

	// n=15 averages indices 4..10: 40..100, mean 70.
	assert.Equal(t, 70.0, TrimmedMean(seq(15)))

	// Outliers in the outer quartiles do not move the result.
	xs := []float64{-1e6, -1e6, -1e6, -1e6, 1, 2, 3, 4, 5, 6, 7, 1e6, 1e6, 1e6, 1e6}
	assert.Equal(t, 4.0, TrimmedMean(xs))
}

func TestRunningAverage(t *testing.T) {
	xs := []float64{100, 200, -50, 75, 3000}

	assert.Equal(t, 100.0, RunningAverage(xs, 0))
	assert.Equal(t, 3000.0, RunningAverage(xs, 1))
	assert.Equal(t, 100.0, RunningAverage(xs, -3), "alpha clamped to 0")
	assert.Equal(t, 3000.0, RunningAverage(xs, 7), "alpha clamped to 1")

	assert.Equal(t, 150.0, RunningAverage([]float64{100, 200}, 0.5))
	assert.Equal(t, 0.0, RunningAverage(nil, 0.5))
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 2.5, Average([]float64{1, 2, 3, 4}))
	assert.Equal(t, 0.0, Average(nil))
}
