package link

import "github.com/itohio/gostand/pkg/report"

// Device is a source of reported curve records (real or replayed).
type Device interface {
	Connect() error
	Close() error
	Records() <-chan report.Record
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Replay implements Device.
var _ Device = (*Replay)(nil)
