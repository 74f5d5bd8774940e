package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
)

// Sampler rate-limits the camera feed with a keep-latest mailbox.
//
// Publish overwrites the single slot and never blocks; Run emits the slot's
// content once per period if something new arrived since the last emission.
// Intermediate frames are dropped, never queued.
type Sampler struct {
	period time.Duration

	mu     sync.Mutex
	latest types.Frame
	fresh  bool

	drops uint64 // frames overwritten before being sampled
	seq   uint64 // sequence number of the last emitted frame
}

// NewSampler creates a Sampler emitting at most fps frames per second.
// The period never drops below one nanosecond, however large fps is.
func NewSampler(fps float64) *Sampler {
	period := time.Duration(float64(time.Second) / fps)
	if period < time.Nanosecond {
		period = time.Nanosecond
	}
	return &Sampler{period: period}
}

// Period is the sampling interval.
func (s *Sampler) Period() time.Duration {
	return s.period
}

// Publish offers f as the newest frame.
func (s *Sampler) Publish(f types.Frame) {
	s.mu.Lock()
	if s.fresh {
		atomic.AddUint64(&s.drops, 1)
	}
	s.latest = f
	s.fresh = true
	s.mu.Unlock()
}

// Take returns the newest frame if it has not been taken yet.
func (s *Sampler) Take() (types.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return types.Frame{}, false
	}
	f := s.latest
	s.latest = types.Frame{}
	s.fresh = false
	return f, true
}

// Drops reports how many published frames were overwritten unsampled.
func (s *Sampler) Drops() uint64 {
	return atomic.LoadUint64(&s.drops)
}

// Run ticks until ctx is done, sending sampled frames that pass admit to out.
// Emitted frames get consecutive sequence numbers starting at 1. out is closed on return.
func (s *Sampler) Run(ctx context.Context, out chan<- types.Frame, admit func(types.Frame) bool) {
	defer close(out)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f, ok := s.Take()
		if !ok {
			continue
		}
		if admit != nil && !admit(f) {
			continue
		}

		s.seq++
		f.Seq = s.seq
		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
	}
}
