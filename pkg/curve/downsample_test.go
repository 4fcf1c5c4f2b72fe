package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Delta: 10, Thrust: int32(i), Elapsed: int64(i+1) * 10}
	}
	return samples
}

func TestDownsample_NoDownsampling(t *testing.T) {
	samples := ramp(3)

	result := Downsample(nil, samples, 10)
	assert.Equal(t, samples, result)

	dst := make([]Sample, 0, 10)
	result = Downsample(dst, samples, 10)
	assert.Equal(t, samples, result)
	assert.Equal(t, cap(dst), cap(result))

	assert.Equal(t, samples, Downsample(nil, samples, 0))
}

func TestDownsample_WithDownsampling(t *testing.T) {
	samples := ramp(100)

	dst := make([]Sample, 0, 20)
	result := Downsample(dst, samples, 10)
	require.Len(t, result, 10)
	assert.Equal(t, cap(dst), cap(result))

	assert.Equal(t, samples[0], result[0])
	assert.Equal(t, samples[10], result[1])
	assert.Equal(t, samples[99], result[9])
}

func TestDownsample_Empty(t *testing.T) {
	assert.Empty(t, Downsample(nil, nil, 10))
}
