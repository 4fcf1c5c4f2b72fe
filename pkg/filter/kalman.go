// Package filter provides the recursive estimator that smooths the raw load
// cell stream.
package filter

// Kalman is a one-dimensional Kalman filter for a constant-state model.
type Kalman struct {
	q float64 // Process noise covariance
	r float64 // Measurement noise covariance
	x float64 // Current estimate
	p float64 // Estimation error covariance

	p0     float64
	seeded bool
}

// NewKalman creates a filter with the given process and measurement noise and
// initial error covariance. The parameters have no canonical values and are
// expected to be tuned per load cell.
func NewKalman(processNoise, measurementNoise, initialError float64) *Kalman {
	return &Kalman{
		q:  processNoise,
		r:  measurementNoise,
		p:  initialError,
		p0: initialError,
	}
}

// Update feeds one measurement and returns the new estimate. The first
// measurement seeds the estimate so the filter does not ramp up from zero.
func (k *Kalman) Update(measurement float64) float64 {
	if !k.seeded {
		k.x = measurement
		k.seeded = true
		return k.x
	}

	// Prediction step
	k.p += k.q

	// Correction step
	gain := k.p / (k.p + k.r)
	k.x += gain * (measurement - k.x)
	k.p = (1 - gain) * k.p

	return k.x
}

// Estimate returns the current estimate.
func (k *Kalman) Estimate() float64 {
	return k.x
}

// ErrorCovariance returns the current estimation error covariance.
func (k *Kalman) ErrorCovariance() float64 {
	return k.p
}

// SetNoise replaces the process and measurement noise parameters.
func (k *Kalman) SetNoise(processNoise, measurementNoise float64) {
	k.q = processNoise
	k.r = measurementNoise
}

// Reset discards the estimate and restores the initial error covariance.
func (k *Kalman) Reset() {
	k.x = 0
	k.p = k.p0
	k.seeded = false
}
