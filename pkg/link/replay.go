package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/report"
)

// Replay streams the curves of a local store as if a stand dumped them over
// the serial link. The records go through the same framing and parsing as a
// real link. The channel closes after the last curve.
type Replay struct {
	store  *curve.Store
	pace   time.Duration
	logger *zap.Logger

	records   chan report.Record
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
}

// NewReplay creates a replay of store. pace is the delay between records,
// zero sends as fast as the consumer reads.
func NewReplay(store *curve.Store, pace time.Duration, logger *zap.Logger) *Replay {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Replay{
		store:   store,
		pace:    pace,
		logger:  logger,
		records: make(chan report.Record, DefaultBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Connect starts the replay.
func (m *Replay) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	m.connected = true

	pr, pw := io.Pipe()
	go func() {
		err := report.WriteAll(&pacedWriter{ctx: m.ctx, w: pw, pace: m.pace}, m.store)
		pw.CloseWithError(err)
	}()
	go func() {
		defer close(m.done)
		defer close(m.records)
		scan(m.ctx, pr, m.records, m.logger)
		pr.Close()
	}()

	return nil
}

// Close stops the replay.
func (m *Replay) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}
	m.cancel()
	<-m.done
	m.connected = false
	return nil
}

// Records returns the channel of replayed records.
func (m *Replay) Records() <-chan report.Record {
	return m.records
}

// IsConnected returns whether the replay was started and not closed.
func (m *Replay) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

var errStopped = errors.New("replay stopped")

type pacedWriter struct {
	ctx  context.Context
	w    io.Writer
	pace time.Duration
}

func (p *pacedWriter) Write(b []byte) (int, error) {
	if p.pace > 0 {
		select {
		case <-time.After(p.pace):
		case <-p.ctx.Done():
			return 0, errStopped
		}
	} else if p.ctx.Err() != nil {
		return 0, errStopped
	}
	return p.w.Write(b)
}
