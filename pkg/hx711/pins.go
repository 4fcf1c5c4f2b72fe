package hx711

import "sync"

// OutputPin drives the PD_SCK clock line.
// TinyGo's machine.Pin satisfies it directly.
type OutputPin interface {
	High()
	Low()
}

// InputPin samples the DOUT data line.
type InputPin interface {
	Get() bool
}

// nopLocker is used where the platform has no way to mask preemption.
type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

var _ sync.Locker = nopLocker{}
