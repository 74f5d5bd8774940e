package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
)

func TestSamplerKeepsLatest(t *testing.T) {
	s := NewSampler(2)
	if s.Period() != 500*time.Millisecond {
		t.Errorf("Expected 500ms period at 2 fps, got %v", s.Period())
	}

	if _, ok := s.Take(); ok {
		t.Fatal("Expected empty mailbox")
	}

	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Publish(types.Frame{At: base.Add(time.Duration(i) * time.Millisecond)})
	}

	f, ok := s.Take()
	if !ok {
		t.Fatal("Expected a frame")
	}
	if !f.At.Equal(base.Add(4 * time.Millisecond)) {
		t.Errorf("Expected the newest frame, got %v", f.At)
	}
	if s.Drops() != 4 {
		t.Errorf("Expected 4 drops, got %d", s.Drops())
	}

	// Each frame is emitted at most once
	if _, ok := s.Take(); ok {
		t.Error("Expected the slot to be consumed")
	}
}

func TestSamplerRun(t *testing.T) {
	s := NewSampler(200) // 5ms ticks
	out := make(chan types.Frame, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rejected := time.Unix(100, 0)
	admit := func(f types.Frame) bool { return !f.At.Equal(rejected) }

	done := make(chan struct{})
	go func() {
		s.Run(ctx, out, admit)
		close(done)
	}()

	recv := func() types.Frame {
		t.Helper()
		select {
		case f := <-out:
			return f
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for a sampled frame")
		}
		return types.Frame{}
	}

	s.Publish(types.Frame{At: time.Unix(1, 0)})
	if f := recv(); f.Seq != 1 || !f.At.Equal(time.Unix(1, 0)) {
		t.Errorf("Unexpected first frame: seq=%d at=%v", f.Seq, f.At)
	}

	// A rejected frame consumes no sequence number
	s.Publish(types.Frame{At: rejected})
	time.Sleep(30 * time.Millisecond)
	s.Publish(types.Frame{At: time.Unix(2, 0)})
	if f := recv(); f.Seq != 2 || !f.At.Equal(time.Unix(2, 0)) {
		t.Errorf("Unexpected second frame: seq=%d at=%v", f.Seq, f.At)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, open := <-out; open {
		t.Error("Expected out to be closed")
	}
}

func TestSamplerPeriodFloor(t *testing.T) {
	for _, fps := range []float64{2e9, 1e12} {
		s := NewSampler(fps)
		if s.Period() < time.Nanosecond {
			t.Fatalf("NewSampler(%v) period = %v", fps, s.Period())
		}

		// Run must not panic in time.NewTicker
		ctx, cancel := context.WithCancel(context.Background())
		out := make(chan types.Frame)
		done := make(chan struct{})
		go func() {
			s.Run(ctx, out, nil)
			close(done)
		}()
		cancel()
		<-done
	}
}
