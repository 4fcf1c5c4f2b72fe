package sample

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/config"
)

// DefaultBufferSize is the default size for sample channels.
const DefaultBufferSize = 100

// Sample is one calibrated acquisition tick.
type Sample struct {
	Timestamp time.Time
	Raw       float64 // Last raw sensor reading (counts)
	Thrust    float64 // Aggregated thrust (units)
	Filtered  float64 // Estimator output (units)
}

// Reader produces calibrated readings. *scale.Scale implements it.
type Reader interface {
	Units(n int) float64
	FilteredUnits() float64
	LastRaw() float64
}

// Converter transforms a sample stream.
type Converter func(in <-chan Sample) <-chan Sample

// Acquire reads r once per cfg.Interval until ctx is done and closes the
// returned channel. A zero interval reads back to back, paced by the sensor.
// Samples are dropped when the consumer falls behind. The goroutine owns r;
// a blocked sensor read delays shutdown until it returns.
func Acquire(ctx context.Context, r Reader, cfg config.AcquisitionConfig, bufSize int, logger *zap.Logger) <-chan Sample {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := max(cfg.Samples, 1)

	out := make(chan Sample, bufSize)

	go func() {
		defer close(out)

		var tick <-chan time.Time
		if cfg.Interval > 0 {
			ticker := time.NewTicker(cfg.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		var dropped uint64
		for {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}

			s := Sample{
				Thrust:   r.Units(n),
				Filtered: r.FilteredUnits(),
				Raw:      r.LastRaw(),
			}
			s.Timestamp = time.Now()

			select {
			case out <- s:
			case <-ctx.Done():
				return
			default:
				dropped++
				logger.Warn("acquisition channel full, dropping sample", zap.Uint64("dropped", dropped))
			}
		}
	}()

	return out
}
