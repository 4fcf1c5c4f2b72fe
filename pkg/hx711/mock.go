package hx711

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/gostand/pkg/config"
)

const (
	maxRaw = 1<<23 - 1
	minRaw = -1 << 23
)

// Mock simulates the HX711 at the bit level. It implements both OutputPin
// (as PD_SCK) and InputPin (as DOUT), so a Reader can be built on it.
type Mock struct {
	mu sync.Mutex

	next   func(g Gain) int32
	period time.Duration

	gain    Gain   // gain of the latched conversion
	value   uint32 // latched 24-bit conversion
	readyAt time.Time

	pulses  int  // clock pulses since the conversion was latched
	sampled bool // DOUT was read during the current pulse

	busyPolls   int
	busy        int
	stalled     bool
	conversions int
}

// Ensure Mock can stand in for both lines.
var (
	_ OutputPin = (*Mock)(nil)
	_ InputPin  = (*Mock)(nil)
)

// NewMock creates a simulated part whose conversions come from next. The
// gain passed to next is the one selected by the preceding read.
func NewMock(next func(g Gain) int32) *Mock {
	m := &Mock{next: next}
	m.latch()
	return m
}

// NewMotorMock creates a simulated load cell that sees a half-sine motor burn
// at the end of every cfg.BurnPeriod, paced at cfg.SampleRate conversions.
func NewMotorMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	start := time.Now()
	gen := func(g Gain) int32 {
		elapsed := time.Since(start)
		thrust := 0.0
		if cfg.BurnPeriod > 0 {
			// The burn occupies the last BurnDuration of each period.
			phase := elapsed%cfg.BurnPeriod - (cfg.BurnPeriod - cfg.BurnDuration)
			if phase >= 0 && cfg.BurnDuration > 0 {
				thrust = cfg.PeakThrust * math.Sin(math.Pi*phase.Seconds()/cfg.BurnDuration.Seconds())
			}
		}

		t := float64(elapsed.Nanoseconds())
		noise := (math.Sin(t*0.001) + math.Cos(t*0.0013)) * cfg.NoiseLevel * 0.5

		raw := (float64(cfg.Bias) + thrust*cfg.CountsPerUnit + noise) * gainFactor(g)
		return int32(math.Max(minRaw, math.Min(maxRaw, raw)))
	}

	m := NewMock(gen)
	m.period = cfg.SampleRate
	m.readyAt = time.Now().Add(m.period)
	return m
}

// gainFactor scales a channel A x128 reading to the other settings.
func gainFactor(g Gain) float64 {
	switch g {
	case GainA64:
		return 0.5
	case GainB32:
		return 0.25
	default:
		return 1
	}
}

// High raises PD_SCK.
func (m *Mock) High() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pulses++
	m.sampled = false
}

// Low lowers PD_SCK. A pulse that never sampled DOUT and was not preceded by
// data bits is a power down: the part resets to channel A x128.
func (m *Mock) Low() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pulses == 1 && !m.sampled {
		m.pulses = 0
		m.gain = GainA128
		m.latch()
	}
}

// Get returns the DOUT level.
func (m *Mock) Get() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.pulses == 0:
		return !m.ready()
	case m.pulses <= DataBits:
		m.sampled = true
		return (m.value>>(DataBits-m.pulses))&1 == 1
	default:
		// Conversion consumed, the extra pulses picked the next gain.
		m.gain = gainForPulses(m.pulses - DataBits)
		m.pulses = 0
		m.latch()
		return !m.ready()
	}
}

// ready must be called with mu held.
func (m *Mock) ready() bool {
	if m.stalled {
		return false
	}
	if m.busy > 0 {
		m.busy--
		return false
	}
	return m.period == 0 || !time.Now().Before(m.readyAt)
}

// latch must be called with mu held.
func (m *Mock) latch() {
	m.value = uint32(m.next(m.gain)) & 0xFFFFFF
	m.busy = m.busyPolls
	m.readyAt = time.Now().Add(m.period)
	m.conversions++
}

// SetBusyPolls makes DOUT report not-ready for n polls before each conversion.
func (m *Mock) SetBusyPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busyPolls = n
	m.busy = n
}

// SetStalled keeps DOUT high indefinitely while stalled is true.
func (m *Mock) SetStalled(stalled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stalled = stalled
}

// Gain returns the setting used for the conversion the next read will return.
func (m *Mock) Gain() Gain {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// Conversions returns how many conversions have been latched.
func (m *Mock) Conversions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversions
}

func gainForPulses(n int) Gain {
	switch n {
	case 2:
		return GainB32
	case 3:
		return GainA64
	default:
		return GainA128
	}
}
