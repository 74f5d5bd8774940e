package pipeline

import (
	"time"

	"github.com/andresmejia3/doorman/internal/types"
)

// Acceptor decides whether a recognition result is acted upon.
type Acceptor interface {
	Accept(faces []types.Face) bool
}

// Threshold accepts when any face's top confidence is strictly above it.
// Used for authorization: a confidence equal to the threshold is rejected.
type Threshold float64

func (t Threshold) Accept(faces []types.Face) bool {
	for _, f := range faces {
		if f.TopPrediction.Confidence > float64(t) {
			return true
		}
	}
	return false
}

// Above returns the faces whose top confidence clears the threshold, in order.
func (t Threshold) Above(faces []types.Face) []types.Face {
	var out []types.Face
	for _, f := range faces {
		if f.TopPrediction.Confidence > float64(t) {
			out = append(out, f)
		}
	}
	return out
}

// Range accepts when any face's top confidence lies in [Min, Max].
// Used for data collection; both ends are inclusive.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Accept(faces []types.Face) bool {
	for _, f := range faces {
		c := f.TopPrediction.Confidence
		if c >= r.Min && c <= r.Max {
			return true
		}
	}
	return false
}

// DefaultDebounceWindow limits unlock attempts to one per second.
const DefaultDebounceWindow = time.Second

// Debouncer lets the first event through and drops the rest of its window.
// Scheduler-only: it is not safe for concurrent use.
type Debouncer struct {
	window time.Duration
	last   time.Time
	armed  bool
}

// NewDebouncer creates a Debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Allow reports whether an event at now opens a new window.
func (d *Debouncer) Allow(now time.Time) bool {
	if d.armed && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	d.armed = true
	return true
}
