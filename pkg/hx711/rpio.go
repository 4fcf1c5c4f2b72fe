package hx711

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIOPin is a Raspberry Pi GPIO accessed through /dev/gpiomem. It is much
// faster than sysfs, which keeps the clock high time well under the 60us
// power-down threshold.
type RPIOPin struct {
	rpio.Pin
}

var (
	_ OutputPin = RPIOPin{}
	_ InputPin  = RPIOPin{}
)

// Get reads the line level.
func (p RPIOPin) Get() bool {
	return p.Read() == rpio.High
}

// OpenRPIO maps the GPIO registers and configures the clock (BCM numbering)
// as output and data as input. Call rpio.Close when done.
func OpenRPIO(clock, data int) (RPIOPin, RPIOPin, error) {
	if err := rpio.Open(); err != nil {
		return RPIOPin{}, RPIOPin{}, fmt.Errorf("failed to open gpio memory: %w", err)
	}

	clk := RPIOPin{rpio.Pin(clock)}
	clk.Output()
	clk.Low()

	dout := RPIOPin{rpio.Pin(data)}
	dout.Input()

	return clk, dout, nil
}
