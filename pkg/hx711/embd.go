package hx711

import (
	"fmt"

	"github.com/kidoman/embd"
	"go.uber.org/zap"
)

// EmbdPin adapts an embd GPIO line. Pin errors cannot be returned through
// the OutputPin/InputPin methods, so the first one is logged and a failed
// read reports DOUT high (not ready).
type EmbdPin struct {
	pin    embd.DigitalPin
	log    *zap.Logger
	failed bool
}

var (
	_ OutputPin = (*EmbdPin)(nil)
	_ InputPin  = (*EmbdPin)(nil)
)

// NewEmbdPin opens the GPIO identified by key (number or name) in the given
// direction. embd.InitGPIO must have been called.
func NewEmbdPin(key interface{}, dir embd.Direction, logger *zap.Logger) (*EmbdPin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pin, err := embd.NewDigitalPin(key)
	if err != nil {
		return nil, fmt.Errorf("failed to open gpio %v: %w", key, err)
	}
	if err := pin.SetDirection(dir); err != nil {
		pin.Close()
		return nil, fmt.Errorf("failed to set direction of gpio %v: %w", key, err)
	}

	return &EmbdPin{pin: pin, log: logger.With(zap.Int("gpio", pin.N()))}, nil
}

// High drives the line high.
func (p *EmbdPin) High() {
	p.report(p.pin.Write(embd.High))
}

// Low drives the line low.
func (p *EmbdPin) Low() {
	p.report(p.pin.Write(embd.Low))
}

// Get reads the line level.
func (p *EmbdPin) Get() bool {
	v, err := p.pin.Read()
	if err != nil {
		p.report(err)
		return true
	}
	return v == embd.High
}

// Close releases the GPIO.
func (p *EmbdPin) Close() error {
	return p.pin.Close()
}

func (p *EmbdPin) report(err error) {
	if err == nil || p.failed {
		return
	}
	p.failed = true
	p.log.Warn("gpio access failed", zap.Error(err))
}
