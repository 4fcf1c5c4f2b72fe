// Package link receives framed curve records from a stand over a serial line.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/report"
)

const (
	// DefaultBaudRate matches the stand firmware default.
	DefaultBaudRate = 38400
	// DefaultBufferSize is the default size for the records channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Open opens a serial port in 8N1 mode. The stand uses it to send dumps.
func Open(name string, baudRate int) (serial.Port, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return port, nil
}

// Serial is a connection to a stand.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	logger   *zap.Logger

	conn      serial.Port
	records   chan report.Record
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
}

// New creates a new Serial with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int, logger *zap.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		logger:   logger,
		records:  make(chan report.Record, bufSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Connect opens the serial port and starts reading records.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := Open(d.port, d.baudRate)
	if err != nil {
		return err
	}

	d.conn = port
	d.connected = true

	go func() {
		defer close(d.done)
		scan(d.ctx, port, d.records, d.logger)
	}()

	return nil
}

// Close closes the port, stops reading and closes the records channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Warn("error closing serial port", zap.Error(err))
		}
		d.conn = nil
	}
	<-d.done

	d.connected = false
	close(d.records)

	return nil
}

// Records returns the channel of received records.
func (d *Serial) Records() <-chan report.Record {
	return d.records
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// scan reads lines from r and forwards valid records until EOF or ctx is
// done. Lines that are not data records are skipped.
func scan(ctx context.Context, r io.Reader, out chan<- report.Record, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, err := report.Parse(line)
		if err != nil {
			if errors.Is(err, report.ErrChecksum) {
				logger.Warn("dropping corrupted record", zap.String("line", line), zap.Error(err))
			} else {
				logger.Debug("skipping line", zap.String("line", line))
			}
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logger.Error("error reading from serial port", zap.Error(err))
	}
}
