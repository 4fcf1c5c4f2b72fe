// Package hx711 drives the two-wire HX711 load cell ADC by bit-banging its
// clock and data lines.
package hx711

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DataBits is the number of bits shifted out per conversion.
	DataBits = 24

	// DefaultPollInterval is the sleep between ready polls in Read.
	DefaultPollInterval = 100 * time.Microsecond

	// powerDownHold keeps PD_SCK high long enough (>60us) to power the part down.
	powerDownHold = 64 * time.Microsecond
)

// Gain selects the input channel and amplifier gain of the next conversion.
type Gain uint8

const (
	GainA128 Gain = iota // channel A, gain 128 (default)
	GainB32              // channel B, gain 32
	GainA64              // channel A, gain 64
)

// Pulses returns the number of clock pulses issued after the 24 data bits to
// select this gain for the next conversion.
func (g Gain) Pulses() int {
	switch g {
	case GainB32:
		return 2
	case GainA64:
		return 3
	default:
		return 1
	}
}

// Valid reports whether g is one of the three supported channel/gain pairs.
func (g Gain) Valid() bool {
	return g <= GainA64
}

func (g Gain) String() string {
	switch g {
	case GainA128:
		return "A128"
	case GainB32:
		return "B32"
	case GainA64:
		return "A64"
	default:
		return fmt.Sprintf("Gain(%d)", uint8(g))
	}
}

// ParseGain maps the amplifier gain value (128, 64 or 32) to a Gain.
func ParseGain(value int) (Gain, error) {
	switch value {
	case 128:
		return GainA128, nil
	case 64:
		return GainA64, nil
	case 32:
		return GainB32, nil
	default:
		return GainA128, fmt.Errorf("unsupported gain %d (want 128, 64 or 32)", value)
	}
}

// SignExtend24 interprets the low 24 bits of v as a two's-complement value.
func SignExtend24(v uint32) int32 {
	v &= 0xFFFFFF
	if v&0x800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v)
}

// Option configures a Reader.
type Option func(*Reader)

// WithCriticalSection sets the lock held while the clock pulses are issued.
// On a microcontroller this should disable interrupts.
func WithCriticalSection(l sync.Locker) Option {
	return func(r *Reader) {
		if l != nil {
			r.critical = l
		}
	}
}

// WithPollInterval sets the sleep between ready polls in Read.
func WithPollInterval(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.poll = d
		}
	}
}

// WithHalfPeriod sets a busy-wait between clock edges. Zero (default) toggles
// as fast as the pins allow.
func WithHalfPeriod(d time.Duration) Option {
	return func(r *Reader) {
		r.halfPeriod = d
	}
}

// WithGain sets the initial gain. Reset restores GainA128.
func WithGain(g Gain) Option {
	return func(r *Reader) {
		if g.Valid() {
			r.gain = g
		}
	}
}

// Reader reads raw conversions from an HX711.
//
// A Reader is not safe for concurrent use; one goroutine owns it.
type Reader struct {
	clock OutputPin
	data  InputPin

	critical   sync.Locker
	poll       time.Duration
	halfPeriod time.Duration

	gain     Gain
	lastRead time.Time
}

// New creates a Reader on the given clock and data lines. The clock line is
// driven low; call Reset to power cycle the part.
func New(clock OutputPin, data InputPin, opts ...Option) *Reader {
	r := &Reader{
		clock:    clock,
		data:     data,
		critical: nopLocker{},
		poll:     DefaultPollInterval,
		gain:     GainA128,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.clock.Low()
	return r
}

// Reset power cycles the part and restores the default gain.
func (r *Reader) Reset() {
	r.PowerDown()
	r.PowerUp()
	r.gain = GainA128
	r.lastRead = time.Time{}
}

// PowerDown holds the clock high for at least 60us.
func (r *Reader) PowerDown() {
	r.clock.High()
	spin(powerDownHold)
}

// PowerUp releases the clock line.
func (r *Reader) PowerUp() {
	r.clock.Low()
}

// IsReady reports whether a conversion is available (DOUT low).
func (r *Reader) IsReady() bool {
	return !r.data.Get()
}

// WaitReady blocks until a conversion is available. There is no timeout.
func (r *Reader) WaitReady() {
	for !r.IsReady() {
		time.Sleep(r.poll)
	}
}

// WaitReadyRetry polls up to attempts times, sleeping interval between polls.
func (r *Reader) WaitReadyRetry(attempts int, interval time.Duration) bool {
	for ; attempts > 0; attempts-- {
		if r.IsReady() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// WaitReadyTimeout polls until the part is ready or timeout elapses.
func (r *Reader) WaitReadyTimeout(timeout, interval time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if r.IsReady() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// Read blocks until the part is ready, shifts in one 24-bit conversion and
// selects the current gain for the next one.
//
// The ready wait sleeps between polls and may be preempted. The clock pulses
// run inside the critical section and cannot be interrupted.
func (r *Reader) Read() int32 {
	r.WaitReady()

	r.critical.Lock()
	var v uint32
	for range DataBits {
		v = v<<1 | r.shiftBit()
	}
	for range r.gain.Pulses() {
		r.clock.High()
		spin(r.halfPeriod)
		r.clock.Low()
		spin(r.halfPeriod)
	}
	r.critical.Unlock()

	r.lastRead = time.Now()
	return SignExtend24(v)
}

// shiftBit issues one clock pulse and samples DOUT while the clock is high.
func (r *Reader) shiftBit() uint32 {
	r.clock.High()
	spin(r.halfPeriod)
	var bit uint32
	if r.data.Get() {
		bit = 1
	}
	r.clock.Low()
	spin(r.halfPeriod)
	return bit
}

// SetGain selects a new channel/gain. The conversion already in flight was
// taken with the old setting, so one read is discarded. Returns false for an
// unsupported gain.
func (r *Reader) SetGain(g Gain, forced bool) bool {
	if !g.Valid() {
		return false
	}
	if !forced && r.gain == g {
		return true
	}
	r.gain = g
	r.Read()
	return true
}

// Gain returns the currently selected gain.
func (r *Reader) Gain() Gain {
	return r.gain
}

// LastRead returns the time the last conversion was shifted in.
func (r *Reader) LastRead() time.Time {
	return r.lastRead
}

// spin busy-waits for d. time.Sleep granularity is far too coarse for the
// microsecond clock timing of the part.
func spin(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}
