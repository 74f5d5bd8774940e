// Package pipeline wires the camera frame stream into authorization decisions.
//
// Stages and the goroutines that run them:
//
//	source ──► sampler mailbox ──► sampler tick + gate ──► worker pool ──► scheduler
//	(capture)   (keep latest)        (admitted frames)     (presence,      (recognize, decide,
//	                                                         encode)         handle)
//
// The scheduler is a single goroutine; everything that talks to the network,
// writes audit output or blocks the gate runs there, in frame order.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/andresmejia3/doorman/internal/types"
	"github.com/andresmejia3/doorman/internal/worker"
	"github.com/rs/zerolog"
)

// FrameSource produces frames until ctx is done.
type FrameSource interface {
	Run(ctx context.Context, publish func(types.Frame))
}

// Detector is the local presence filter.
type Detector interface {
	HasFace(img image.Image) bool
}

// Encoder prepares a frame for upload.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// Recognizer queries the face recognition service. An empty result means
// "no face", whatever the reason.
type Recognizer interface {
	Recognize(ctx context.Context, jpeg []byte) []types.Face
}

// Handler acts on accepted decisions. A returned error stops the pipeline.
type Handler interface {
	Handle(ctx context.Context, d types.Decision) error
}

// Pipeline is one configured instance of the engine or the collector.
type Pipeline struct {
	Source     FrameSource
	Sampler    *Sampler
	Gate       *Gate      // nil disables cooldown gating
	Detectors  []Detector // one per pool worker
	Encoder    Encoder
	Recognizer Recognizer
	Acceptor   Acceptor
	Handler    Handler
	Log        zerolog.Logger
}

// Run drives the pipeline until ctx is cancelled or a stage fails unexpectedly.
func (p *Pipeline) Run(ctx context.Context) error {
	if len(p.Detectors) == 0 {
		return fmt.Errorf("pipeline needs at least one detector")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(p.Detectors)
	tasks := make(chan types.Frame, n)
	results := make(chan worker.Result, n*2)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		p.Source.Run(ctx, p.Sampler.Publish)
	}()
	go func() {
		defer wg.Done()
		p.Sampler.Run(ctx, tasks, p.admit)
	}()
	go func() {
		defer wg.Done()
		pool := &worker.Pool{Size: n, Process: p.inspect}
		pool.Run(ctx, tasks, results)
	}()

	err := p.schedule(ctx, results)

	// Unblock workers still trying to hand over results
	cancel()
	for range results {
	}
	wg.Wait()

	if p.Gate != nil {
		p.Gate.Stop()
	}
	p.Log.Info().Uint64("sampler_drops", p.Sampler.Drops()).Msg("Pipeline stopped")
	return err
}

func (p *Pipeline) admit(f types.Frame) bool {
	if p.Gate == nil {
		return true
	}
	return p.Gate.Admit(f.At)
}

// inspect runs on pool worker id: presence check, then resize and encode.
func (p *Pipeline) inspect(id int, f types.Frame) worker.Result {
	if !p.Detectors[id].HasFace(f.Image) {
		return worker.Result{Frame: f}
	}
	data, err := p.Encoder.Encode(f.Image)
	if err != nil {
		return worker.Result{Frame: f, Err: fmt.Errorf("frame %d: %w", f.Seq, err)}
	}
	f.JPEG = data
	return worker.Result{Frame: f, Candidate: true}
}

// schedule is the single consumer. It returns the first fatal error, or nil
// once results is closed.
func (p *Pipeline) schedule(ctx context.Context, results <-chan worker.Result) error {
	seq := worker.NewSequencer(1)
	for res := range results {
		if res.Err != nil {
			return res.Err
		}
		for _, r := range seq.Push(res) {
			if err := p.process(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) process(ctx context.Context, r worker.Result) error {
	if !r.Candidate {
		return nil
	}
	// The gate may have closed while this frame sat in the pool
	if p.Gate != nil && !p.Gate.Admit(r.Frame.At) {
		p.Log.Debug().Uint64("seq", r.Frame.Seq).Msg("Frame discarded by gate")
		return nil
	}

	faces := p.Recognizer.Recognize(ctx, r.Frame.JPEG)
	if !p.Acceptor.Accept(faces) {
		return nil
	}
	return p.Handler.Handle(ctx, types.Decision{Frame: r.Frame, Faces: faces})
}
