package main

import (
	"fmt"

	"github.com/kidoman/embd"
	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/config"
	"github.com/itohio/gostand/pkg/eeprom"
	"github.com/itohio/gostand/pkg/filter"
	"github.com/itohio/gostand/pkg/hx711"
	"github.com/itohio/gostand/pkg/scale"
)

// openMemory opens the curve memory backend. The returned close function is
// always safe to call.
func openMemory(cfg config.StoreConfig, size uint32) (eeprom.Memory, func(), error) {
	switch cfg.Backend {
	case "i2c":
		if err := embd.InitI2C(); err != nil {
			return nil, nil, fmt.Errorf("failed to init i2c: %w", err)
		}
		bus := embd.NewI2CBus(byte(cfg.Bus))
		return eeprom.NewI2C(bus, byte(cfg.Address), int(size), cfg.PageSize), func() { embd.CloseI2C() }, nil
	case "file":
		if cfg.ImagePath == "" {
			return nil, nil, fmt.Errorf("store backend %q needs image_path", cfg.Backend)
		}
		f, err := eeprom.OpenImage(cfg.ImagePath, int64(size))
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	case "memory":
		return eeprom.NewRAM(int(size)), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// openPins opens the HX711 clock and data lines.
func openPins(cfg *config.Config, logger *zap.Logger) (hx711.OutputPin, hx711.InputPin, func(), error) {
	switch cfg.Sensor.Backend {
	case "mock":
		m := hx711.NewMotorMock(&cfg.Mock)
		return m, m, func() {}, nil
	case "rpio":
		clk, dout, err := hx711.OpenRPIO(cfg.Sensor.ClockPin, cfg.Sensor.DataPin)
		if err != nil {
			return nil, nil, nil, err
		}
		return clk, dout, func() { rpio.Close() }, nil
	case "embd":
		if err := embd.InitGPIO(); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to init gpio: %w", err)
		}
		clk, err := hx711.NewEmbdPin(cfg.Sensor.ClockPin, embd.Out, logger)
		if err != nil {
			embd.CloseGPIO()
			return nil, nil, nil, err
		}
		dout, err := hx711.NewEmbdPin(cfg.Sensor.DataPin, embd.In, logger)
		if err != nil {
			clk.Close()
			embd.CloseGPIO()
			return nil, nil, nil, err
		}
		return clk, dout, func() {
			dout.Close()
			clk.Close()
			embd.CloseGPIO()
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown sensor backend %q", cfg.Sensor.Backend)
	}
}

// openScale brings up the sensor and returns a calibrated, warmed up Scale.
func openScale(cfg *config.Config, logger *zap.Logger) (*scale.Scale, func(), error) {
	gain, err := hx711.ParseGain(cfg.Sensor.Gain)
	if err != nil {
		return nil, nil, err
	}
	mode, err := scale.ParseMode(cfg.Acquisition.Mode)
	if err != nil {
		return nil, nil, err
	}

	clk, dout, closePins, err := openPins(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	reader := hx711.New(clk, dout, hx711.WithPollInterval(cfg.Sensor.PollInterval))
	reader.Reset()
	if !reader.WaitReadyTimeout(cfg.Sensor.ReadyTimeout, cfg.Sensor.PollInterval) {
		closePins()
		return nil, nil, fmt.Errorf("load cell not ready after %v", cfg.Sensor.ReadyTimeout)
	}
	reader.SetGain(gain, true)

	est := cfg.Estimator
	sc := scale.New(reader, filter.NewKalman(est.ProcessNoise, est.MeasurementNoise, est.InitialError))
	sc.SetMode(mode)
	sc.SetAlpha(cfg.Acquisition.Alpha)
	if !sc.SetScale(cfg.Acquisition.Scale) {
		closePins()
		return nil, nil, fmt.Errorf("invalid scale %v", cfg.Acquisition.Scale)
	}
	sc.SetOffset(cfg.Acquisition.Offset)
	sc.Begin(cfg.Sensor.WarmupReads)

	if cfg.Acquisition.TareOnStart {
		sc.Tare(cfg.Acquisition.TareSamples)
	}
	logger.Info("load cell ready",
		zap.String("backend", cfg.Sensor.Backend),
		zap.Stringer("gain", gain),
		zap.Stringer("mode", mode),
		zap.Int32("offset", sc.Offset()),
		zap.Float64("scale", sc.Scale()))

	return sc, closePins, nil
}
