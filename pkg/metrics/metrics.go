// Package metrics exposes stand readings and store activity to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stand"

// Metrics holds the stand collectors. A nil *Metrics ignores all updates.
type Metrics struct {
	Thrust         prometheus.Gauge
	Filtered       prometheus.Gauge
	Raw            prometheus.Gauge
	Samples        prometheus.Counter
	Recording      prometheus.Gauge
	Curves         *prometheus.CounterVec
	RecordedBytes  prometheus.Counter
	StoreUsedBytes prometheus.Gauge
	AppendErrors   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Thrust: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thrust",
			Help:      "Last aggregated thrust in calibrated units.",
		}),
		Filtered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thrust_filtered",
			Help:      "Last estimator output in calibrated units.",
		}),
		Raw: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "raw_counts",
			Help:      "Last raw load cell reading.",
		}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Acquisition ticks processed.",
		}),
		Recording: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recording",
			Help:      "1 while a curve is being recorded.",
		}),
		Curves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "curves_total",
				Help:      "Curves by outcome.",
			},
			[]string{"event"},
		),
		RecordedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorded_bytes_total",
			Help:      "Sample bytes written to the curve store.",
		}),
		StoreUsedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_used_bytes",
			Help:      "End address of the most recent curve.",
		}),
		AppendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "append_errors_total",
			Help:      "Failed sample writes.",
		}),
	}

	reg.MustRegister(
		m.Thrust,
		m.Filtered,
		m.Raw,
		m.Samples,
		m.Recording,
		m.Curves,
		m.RecordedBytes,
		m.StoreUsedBytes,
		m.AppendErrors,
	)
	return m
}

// ObserveReading records one acquisition tick.
func (m *Metrics) ObserveReading(raw, thrust, filtered float64) {
	if m == nil {
		return
	}
	m.Raw.Set(raw)
	m.Thrust.Set(thrust)
	m.Filtered.Set(filtered)
	m.Samples.Inc()
}

// CurveEvent counts a curve lifecycle event ("started", "closed" or
// "rejected").
func (m *Metrics) CurveEvent(event string) {
	if m == nil {
		return
	}
	m.Curves.WithLabelValues(event).Inc()
	switch event {
	case "started":
		m.Recording.Set(1)
	case "closed":
		m.Recording.Set(0)
	}
}

// Appended records a successful sample write of n bytes.
func (m *Metrics) Appended(n uint32) {
	if m == nil {
		return
	}
	m.RecordedBytes.Add(float64(n))
}

// AppendFailed records a failed sample write.
func (m *Metrics) AppendFailed() {
	if m == nil {
		return
	}
	m.AppendErrors.Inc()
}

// SetStoreUsed records the next free store address.
func (m *Metrics) SetStoreUsed(addr uint32) {
	if m == nil {
		return
	}
	m.StoreUsedBytes.Set(float64(addr))
}
