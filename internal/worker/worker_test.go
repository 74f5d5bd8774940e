package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
)

func TestPoolProcessesEveryTask(t *testing.T) {
	tasks := make(chan types.Frame, 4)
	results := make(chan Result, 4)

	var calls int64
	pool := &Pool{
		Size: 3,
		Process: func(id int, f types.Frame) Result {
			atomic.AddInt64(&calls, 1)
			return Result{Frame: f, Candidate: f.Seq%2 == 0}
		},
	}

	go func() {
		for i := uint64(1); i <= 10; i++ {
			tasks <- types.Frame{Seq: i}
		}
		close(tasks)
	}()
	go pool.Run(context.Background(), tasks, results)

	seen := make(map[uint64]bool)
	for r := range results {
		seen[r.Frame.Seq] = r.Candidate
	}

	if len(seen) != 10 || atomic.LoadInt64(&calls) != 10 {
		t.Fatalf("Expected 10 results, got %d (calls %d)", len(seen), calls)
	}
	if !seen[4] || seen[5] {
		t.Error("Candidate flag not carried through")
	}
}

func TestPoolPropagatesErrors(t *testing.T) {
	tasks := make(chan types.Frame, 1)
	results := make(chan Result, 1)

	boom := errors.New("encode failed")
	pool := &Pool{Size: 1, Process: func(int, types.Frame) Result {
		return Result{Err: boom}
	}}

	tasks <- types.Frame{Seq: 1}
	close(tasks)
	go pool.Run(context.Background(), tasks, results)

	r := <-results
	if !errors.Is(r.Err, boom) {
		t.Errorf("Expected worker error to reach the consumer, got %v", r.Err)
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	tasks := make(chan types.Frame)
	results := make(chan Result) // nobody reads

	ctx, cancel := context.WithCancel(context.Background())
	pool := &Pool{Size: 2, Process: func(_ int, f types.Frame) Result { return Result{Frame: f} }}

	done := make(chan struct{})
	go func() {
		pool.Run(ctx, tasks, results)
		close(done)
	}()

	tasks <- types.Frame{Seq: 1}
	cancel()
	close(tasks)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pool did not stop after cancellation")
	}
}

func TestSequencerReordersResults(t *testing.T) {
	seq := NewSequencer(1)

	if got := seq.Push(Result{Frame: types.Frame{Seq: 2}}); len(got) != 0 {
		t.Fatalf("Frame 2 released before frame 1: %v", got)
	}
	if got := seq.Push(Result{Frame: types.Frame{Seq: 3}}); len(got) != 0 {
		t.Fatalf("Frame 3 released before frame 1: %v", got)
	}
	if seq.Pending() != 2 {
		t.Errorf("Expected 2 pending, got %d", seq.Pending())
	}

	got := seq.Push(Result{Frame: types.Frame{Seq: 1}})
	if len(got) != 3 {
		t.Fatalf("Expected 3 released results, got %d", len(got))
	}
	for i, r := range got {
		if r.Frame.Seq != uint64(i+1) {
			t.Errorf("Position %d: expected seq %d, got %d", i, i+1, r.Frame.Seq)
		}
	}
	if seq.Pending() != 0 {
		t.Errorf("Expected empty buffer, got %d", seq.Pending())
	}
}
