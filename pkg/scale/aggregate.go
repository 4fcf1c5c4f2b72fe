package scale

const (
	// MinSortSamples and MaxSortSamples bound n for the sort based modes.
	MinSortSamples = 3
	MaxSortSamples = 15
)

// clampSort limits n to [MinSortSamples, MaxSortSamples].
func clampSort(n int) int {
	return min(max(n, MinSortSamples), MaxSortSamples)
}

// Average returns the arithmetic mean of xs, or 0 for an empty slice.
func Average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// InsertionSort sorts xs in place in ascending order. It is stable and
// allocation free, which is all the window sizes used here need.
func InsertionSort(xs []float64) {
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i
		for j > 0 && v < xs[j-1] {
			xs[j] = xs[j-1]
			j--
		}
		xs[j] = v
	}
}

// Median returns the middle value of an ascending slice, or the mean of the
// two central values for an even length.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// TrimmedMean averages the inclusive middle half of an ascending slice,
// indices (n+2)/4 through n-(n+2)/4-1, dropping the outer quartiles.
func TrimmedMean(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	lo, hi := trimBounds(n)
	return Average(sorted[lo : hi+1])
}

func trimBounds(n int) (lo, hi int) {
	lo = (n + 2) / 4
	hi = n - lo - 1
	return lo, hi
}

// RunningAverage exponentially smooths xs, seeded with the first value:
// v += alpha*(x-v). alpha is clamped to [0, 1].
func RunningAverage(xs []float64, alpha float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	alpha = min(max(alpha, 0), 1)
	v := xs[0]
	for _, x := range xs[1:] {
		v += alpha * (x - v)
	}
	return v
}
