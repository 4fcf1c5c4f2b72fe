package sample

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gostand/pkg/config"
	"github.com/itohio/gostand/pkg/filter"
	"github.com/itohio/gostand/pkg/hx711"
	"github.com/itohio/gostand/pkg/scale"
)

type fakeReader struct {
	mu    sync.Mutex
	value float64
	reads []int
}

func (r *fakeReader) Units(n int) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads = append(r.reads, n)
	r.value++
	return r.value
}

func (r *fakeReader) FilteredUnits() float64 { return -1 }
func (r *fakeReader) LastRaw() float64       { return 42 }

func TestAcquire_Samples(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{}
	cfg := config.AcquisitionConfig{Samples: 4, Interval: time.Millisecond}
	out := Acquire(ctx, r, cfg, 10, nil)

	var got []Sample
	for s := range out {
		got = append(got, s)
		if len(got) == 3 {
			cancel()
			break
		}
	}

	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].Thrust)
	assert.Equal(t, 2.0, got[1].Thrust)
	assert.Equal(t, -1.0, got[0].Filtered)
	assert.Equal(t, 42.0, got[0].Raw)
	assert.False(t, got[1].Timestamp.Before(got[0].Timestamp))

	r.mu.Lock()
	assert.Equal(t, 4, r.reads[0])
	r.mu.Unlock()
}

func TestAcquire_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := Acquire(ctx, &fakeReader{}, config.AcquisitionConfig{Interval: time.Millisecond}, 1, nil)
	cancel()

	done := make(chan struct{})
	go func() {
		for range out {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquisition did not stop")
	}
}

func TestAcquire_DropsWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{}
	out := Acquire(ctx, r, config.AcquisitionConfig{Interval: time.Millisecond}, 1, nil)

	// Nobody reads: the producer keeps going and drops.
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.reads) > 5
	}, 2*time.Second, time.Millisecond)

	s := <-out
	assert.Equal(t, 1.0, s.Thrust, "first sample kept, later ones dropped")
}

func TestAcquire_Scale(t *testing.T) {
	mock := hx711.NewMock(func(hx711.Gain) int32 { return 1100 })
	s := scale.New(hx711.New(mock, mock), filter.NewKalman(1, 100, 1000))
	s.SetOffset(100)
	require.True(t, s.SetScale(10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := Acquire(ctx, s, config.AcquisitionConfig{Samples: 3}, 10, nil)
	got := <-out
	cancel()

	assert.Equal(t, 100.0, got.Thrust)
	assert.Equal(t, 1100.0, got.Raw)
	assert.Equal(t, 100.0, got.Filtered)
}
