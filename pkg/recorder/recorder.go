// Package recorder turns the acquisition stream into stored curves.
//
// A curve starts when thrust reaches the start threshold and stops once
// thrust stays below the end threshold for the end delay, after the maximum
// duration, or when the store runs out of space.
package recorder

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/config"
	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/sample"
)

// EventKind identifies a curve lifecycle event.
type EventKind int

const (
	CurveStarted EventKind = iota
	CurveClosed
	// CurveRejected means thrust crossed the start threshold while the store
	// could not take another curve.
	CurveRejected
)

func (k EventKind) String() string {
	switch k {
	case CurveStarted:
		return "started"
	case CurveClosed:
		return "closed"
	case CurveRejected:
		return "rejected"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is passed to OnEvent callbacks.
type Event struct {
	Kind  EventKind
	Curve int
	Entry curve.Entry
	Time  time.Time
}

// Observer receives readings and store activity. *metrics.Metrics
// implements it.
type Observer interface {
	ObserveReading(raw, thrust, filtered float64)
	CurveEvent(event string)
	Appended(n uint32)
	AppendFailed()
	SetStoreUsed(addr uint32)
}

type nopObserver struct{}

func (nopObserver) ObserveReading(float64, float64, float64) {}
func (nopObserver) CurveEvent(string)                        {}
func (nopObserver) Appended(uint32)                          {}
func (nopObserver) AppendFailed()                            {}
func (nopObserver) SetStoreUsed(uint32)                      {}

// Recorder implements threshold triggered recording into a curve.Store.
type Recorder struct {
	store    *curve.Store
	cfg      config.RecordingConfig
	logger   *zap.Logger
	observer Observer

	mu         sync.Mutex
	armed      bool
	recording  bool
	rejected   bool
	index      int
	addr       uint32
	start      time.Time
	last       time.Time
	belowSince time.Time

	callbacks []func(Event)
	cbMu      sync.RWMutex
}

// New creates a Recorder. The store directory must already be loaded.
// obs may be nil.
func New(store *curve.Store, cfg config.RecordingConfig, obs Observer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Recorder{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		observer: obs,
	}
}

// Arm enables recording on the next start threshold crossing.
func (r *Recorder) Arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = true
	r.rejected = false
}

// Disarm stops triggering new curves. An active curve keeps recording.
func (r *Recorder) Disarm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = false
}

// Armed reports whether a threshold crossing starts a curve.
func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Recording reports whether a curve is open and its index.
func (r *Recorder) Recording() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index, r.recording
}

// OnEvent registers a callback for curve lifecycle events. Callbacks run on
// the processing goroutine and should return quickly.
func (r *Recorder) OnEvent(callback func(Event)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.callbacks = append(r.callbacks, callback)
}

// Process handles samples until input closes, then closes any open curve.
func (r *Recorder) Process(input <-chan sample.Sample) {
	for s := range input {
		if err := r.Handle(s); err != nil {
			r.logger.Error("failed to record sample", zap.Error(err))
		}
	}
	if err := r.Stop(); err != nil {
		r.logger.Error("failed to close curve", zap.Error(err))
	}
}

// Handle processes one acquisition tick.
func (r *Recorder) Handle(s sample.Sample) error {
	r.observer.ObserveReading(s.Raw, s.Thrust, s.Filtered)

	r.mu.Lock()
	var (
		events []Event
		err    error
	)
	if r.recording {
		events, err = r.append(s)
	} else {
		events, err = r.trigger(s)
	}
	r.mu.Unlock()

	r.notify(events)
	return err
}

// Stop closes an open curve at the current address.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	ev, err := r.close(r.last)
	r.mu.Unlock()

	if err != nil {
		return err
	}
	r.notify([]Event{ev})
	return nil
}

func (r *Recorder) trigger(s sample.Sample) ([]Event, error) {
	if !r.armed || s.Thrust < r.cfg.StartThrust {
		r.rejected = false
		return nil, nil
	}

	if !r.store.CanRecord() {
		if r.rejected {
			return nil, nil
		}
		r.rejected = true
		r.observer.CurveEvent(CurveRejected.String())
		r.logger.Warn("curve store full, not recording", zap.Float64("thrust", s.Thrust))
		return []Event{{Kind: CurveRejected, Time: s.Timestamp}}, nil
	}

	index := 0
	if last, ok := r.store.LastIndex(); ok {
		index = last + 1
	}
	if err := r.store.Begin(index); err != nil {
		return nil, err
	}

	r.recording = true
	r.index = index
	r.addr = r.store.NextAddress()
	r.start = s.Timestamp
	r.last = s.Timestamp
	r.belowSince = time.Time{}
	r.observer.CurveEvent(CurveStarted.String())

	entry, _ := r.store.Entry(index)
	events := []Event{{Kind: CurveStarted, Curve: index, Entry: entry, Time: s.Timestamp}}

	more, err := r.append(s)
	return append(events, more...), err
}

func (r *Recorder) append(s sample.Sample) ([]Event, error) {
	delta := s.Timestamp.Sub(r.last).Milliseconds()
	rec := curve.Sample{
		Delta:          int32(delta),
		Thrust:         toCount(s.Thrust),
		ThrustFiltered: toCount(s.Filtered),
	}

	next, err := r.store.Append(r.addr, rec)
	if err != nil {
		r.observer.AppendFailed()
		if errors.Is(err, curve.ErrOutOfSpace) {
			r.logger.Warn("curve store out of space", zap.Int("curve", r.index), zap.Uint32("address", r.addr))
			ev, cerr := r.close(r.last)
			if cerr != nil {
				return nil, cerr
			}
			return []Event{ev}, nil
		}
		return nil, err
	}
	r.observer.Appended(next - r.addr)
	r.addr = next
	r.last = s.Timestamp

	if r.shouldClose(s) {
		ev, err := r.close(s.Timestamp)
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil
	}
	return nil, nil
}

func (r *Recorder) shouldClose(s sample.Sample) bool {
	if r.cfg.MaxDuration > 0 && s.Timestamp.Sub(r.start) >= r.cfg.MaxDuration {
		r.logger.Info("curve reached max duration", zap.Int("curve", r.index))
		return true
	}

	if s.Thrust >= r.cfg.EndThrust {
		r.belowSince = time.Time{}
		return false
	}
	if r.belowSince.IsZero() {
		r.belowSince = s.Timestamp
	}
	return s.Timestamp.Sub(r.belowSince) >= r.cfg.EndDelay
}

func (r *Recorder) close(at time.Time) (Event, error) {
	if err := r.store.Close(r.index, r.addr); err != nil {
		return Event{}, err
	}
	r.recording = false
	r.observer.CurveEvent(CurveClosed.String())
	r.observer.SetStoreUsed(r.addr)

	entry, _ := r.store.Entry(r.index)
	return Event{Kind: CurveClosed, Curve: r.index, Entry: entry, Time: at}, nil
}

func (r *Recorder) notify(events []Event) {
	if len(events) == 0 {
		return
	}

	r.cbMu.RLock()
	callbacks := make([]func(Event), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.cbMu.RUnlock()

	for _, ev := range events {
		for _, cb := range callbacks {
			if cb != nil {
				cb(ev)
			}
		}
	}
}

// toCount rounds a calibrated value into a stored field.
func toCount(v float64) int32 {
	v = math.Round(v)
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
