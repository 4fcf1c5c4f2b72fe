package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/config"
	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/metrics"
	"github.com/itohio/gostand/pkg/recorder"
	"github.com/itohio/gostand/pkg/report"
	"github.com/itohio/gostand/pkg/sample"
)

const (
	telemetryWindow = 8
	telemetryPeriod = 100 * time.Millisecond
)

// run acquires and records curves until ctx is done. Every closed curve is
// dumped to out in the serial record format.
func run(ctx context.Context, cfg *config.Config, store *curve.Store, out io.Writer, telemetry bool, logger *zap.Logger) error {
	sc, closeSensor, err := openScale(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSensor()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer srv.Close()
	}
	m.SetStoreUsed(store.NextAddress())

	rec := recorder.New(store, cfg.Recording, m, logger)
	rec.OnEvent(func(ev recorder.Event) {
		logger.Info("curve event",
			zap.Stringer("kind", ev.Kind),
			zap.Int("curve", ev.Curve),
			zap.Stringer("entry", ev.Entry))
		if ev.Kind != recorder.CurveClosed {
			return
		}
		if err := report.WriteCurve(out, store, ev.Curve); err != nil {
			logger.Error("failed to dump curve", zap.Int("curve", ev.Curve), zap.Error(err))
		}
	})
	rec.Arm()

	samples := sample.Acquire(ctx, sc, cfg.Acquisition, sample.DefaultBufferSize, logger)

	var tee chan sample.Sample
	done := make(chan struct{})
	if telemetry {
		tee = make(chan sample.Sample, sample.DefaultBufferSize)
		go func() {
			defer close(done)
			avg := sample.NewAveragingConverter(telemetryWindow, sample.DefaultBufferSize, telemetryPeriod, logger)
			for s := range avg(tee) {
				logger.Info("thrust",
					zap.Float64("thrust", s.Thrust),
					zap.Float64("filtered", s.Filtered),
					zap.Float64("raw", s.Raw))
			}
		}()
	} else {
		close(done)
	}

	logger.Info("recording armed",
		zap.Float64("start_thrust", cfg.Recording.StartThrust),
		zap.Float64("end_thrust", cfg.Recording.EndThrust),
		zap.Int("curves", len(store.Entries())))

	for s := range samples {
		if err := rec.Handle(s); err != nil {
			logger.Error("failed to record sample", zap.Error(err))
		}
		if tee != nil {
			select {
			case tee <- s:
			default:
			}
		}
	}
	if tee != nil {
		close(tee)
	}
	<-done

	return rec.Stop()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("serving metrics", zap.String("listen", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
