//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"runtime/interrupt"
	"time"

	"github.com/kidoman/embd"

	"github.com/itohio/gostand/pkg/config"
	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/eeprom"
	"github.com/itohio/gostand/pkg/filter"
	"github.com/itohio/gostand/pkg/hx711"
	"github.com/itohio/gostand/pkg/recorder"
	"github.com/itohio/gostand/pkg/report"
	"github.com/itohio/gostand/pkg/sample"
	"github.com/itohio/gostand/pkg/scale"
)

var uart = machine.UART0

func main() {
	PIN_CLOCK.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_DATA.Configure(machine.PinConfig{Mode: machine.PinInput})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{Frequency: I2C_FREQUENCY}); err != nil {
		halt("i2c", err)
	}

	mem := eeprom.NewI2C(&i2cBus{bus: i2c}, EEPROM_ADDRESS, EEPROM_SIZE, eeprom.DefaultPageSize)
	store := curve.New(mem, curve.LayoutThrust, EEPROM_SIZE, nil)
	if err := store.LoadDirectory(); err != nil {
		halt("directory", err)
	}

	// Everything recorded so far goes out once on boot.
	if err := report.WriteAll(uart, store); err != nil {
		println("dump failed:", err.Error())
	}

	reader := hx711.New(PIN_CLOCK, PIN_DATA, hx711.WithCriticalSection(&irqLock{}))
	reader.Reset()

	sc := scale.New(reader, filter.NewKalman(PROCESS_NOISE, MEASUREMENT_NOISE, INITIAL_ERROR))
	sc.SetScale(SCALE)
	sc.Begin(WARMUP_READS)
	sc.Tare(TARE_READS)

	rec := recorder.New(store, config.RecordingConfig{
		StartThrust: START_THRUST,
		EndThrust:   END_THRUST,
		EndDelay:    END_DELAY,
		MaxDuration: MAX_DURATION,
	}, nil, nil)
	rec.OnEvent(func(ev recorder.Event) {
		if ev.Kind != recorder.CurveClosed {
			return
		}
		if err := report.WriteCurve(uart, store, ev.Curve); err != nil {
			println("dump failed:", err.Error())
		}
	})
	rec.Arm()

	next := time.Now()
	for {
		s := sample.Sample{
			Thrust:   sc.Units(AGGREGATE_READS),
			Filtered: sc.FilteredUnits(),
			Raw:      sc.LastRaw(),
		}
		s.Timestamp = time.Now()

		if err := rec.Handle(s); err != nil {
			println("record failed:", err.Error())
		}

		next = next.Add(SAMPLE_INTERVAL)
		if d := time.Until(next); d > 0 {
			time.Sleep(d)
		} else {
			next = time.Now()
		}
	}
}

func halt(what string, err error) {
	for {
		println(what, "failed:", err.Error())
		time.Sleep(time.Second)
	}
}

// irqLock keeps interrupts off while the HX711 clock pulses run; a pulse
// stretched past 60us powers the part down.
type irqLock struct {
	state interrupt.State
}

func (l *irqLock) Lock() {
	l.state = interrupt.Disable()
}

func (l *irqLock) Unlock() {
	interrupt.Restore(l.state)
}

// i2cBus exposes the two transfers the EEPROM driver uses over machine.I2C.
// The remaining embd.I2CBus methods are not implemented.
type i2cBus struct {
	embd.I2CBus
	bus *machine.I2C
}

func (b *i2cBus) WriteBytes(addr byte, value []byte) error {
	return b.bus.Tx(uint16(addr), value, nil)
}

func (b *i2cBus) ReadBytes(addr byte, num int) ([]byte, error) {
	buf := make([]byte, num)
	if err := b.bus.Tx(uint16(addr), nil, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
