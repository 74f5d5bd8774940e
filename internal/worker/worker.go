package worker

import (
	"context"
	"sync"

	"github.com/andresmejia3/doorman/internal/types"
)

// Result is what a worker hands to the single consumer for one frame.
// Every task yields exactly one Result, even rejected ones, so the consumer
// can re-sequence without gaps.
type Result struct {
	Frame     types.Frame
	Candidate bool  // frame passed the local checks and carries JPEG bytes
	Err       error // unexpected failure; fatal to the pipeline
}

// ProcessFunc handles one frame on worker id.
type ProcessFunc func(id int, f types.Frame) Result

// Pool runs Size goroutines over a task channel.
type Pool struct {
	Size    int
	Process ProcessFunc
}

// Run blocks until tasks is closed (or ctx is done) and every worker has
// returned, then closes results.
func (p *Pool) Run(ctx context.Context, tasks <-chan types.Frame, results chan<- Result) {
	var wg sync.WaitGroup
	for i := 0; i < p.Size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.work(ctx, workerID, tasks, results)
		}(i)
	}
	wg.Wait()
	close(results)
}

func (p *Pool) work(ctx context.Context, id int, tasks <-chan types.Frame, results chan<- Result) {
	for task := range tasks {
		res := p.Process(id, task)
		select {
		case results <- res:
		case <-ctx.Done():
			return
		}
	}
}

// Sequencer releases results in frame sequence order.
// Workers may finish out of order; Push buffers early arrivals until the gap is filled.
type Sequencer struct {
	next    uint64
	pending map[uint64]Result
}

// NewSequencer expects the first frame to carry sequence number first.
func NewSequencer(first uint64) *Sequencer {
	return &Sequencer{next: first, pending: make(map[uint64]Result)}
}

// Push adds r and returns every result now releasable, in order.
func (s *Sequencer) Push(r Result) []Result {
	s.pending[r.Frame.Seq] = r

	var ready []Result
	for {
		res, ok := s.pending[s.next]
		if !ok {
			break
		}
		delete(s.pending, s.next)
		ready = append(ready, res)
		s.next++
	}
	return ready
}

// Pending is the number of buffered out-of-order results.
func (s *Sequencer) Pending() int {
	return len(s.pending)
}
