package sample

import (
	"time"

	"go.uber.org/zap"
)

// NewAveragingConverter creates a converter that emits the mean of the last
// windowSize samples once per period. It is used for live telemetry where the
// full acquisition rate is not needed.
func NewAveragingConverter(windowSize, bufSize int, period time.Duration, logger *zap.Logger) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []Sample
			ticker := time.NewTicker(period)
			defer ticker.Stop()

			for {
				select {
				case s, ok := <-in:
					if !ok {
						// Input closed, flush what is left
						if len(buffer) > 0 {
							select {
							case out <- averageSamples(buffer):
							default:
							}
						}
						return
					}

					buffer = append(buffer, s)
					if len(buffer) > windowSize {
						buffer = buffer[1:] // Remove oldest
					}

				case <-ticker.C:
					if len(buffer) > 0 {
						select {
						case out <- averageSamples(buffer):
						default:
							logger.Debug("averaging converter output channel full")
						}
					}
				}
			}
		}()

		return out
	}
}

// averageSamples averages a window. The newest timestamp is kept.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumRaw, sumThrust, sumFiltered float64
	for _, s := range samples {
		sumRaw += s.Raw
		sumThrust += s.Thrust
		sumFiltered += s.Filtered
	}

	n := float64(len(samples))
	return Sample{
		Timestamp: samples[len(samples)-1].Timestamp,
		Raw:       sumRaw / n,
		Thrust:    sumThrust / n,
		Filtered:  sumFiltered / n,
	}
}
