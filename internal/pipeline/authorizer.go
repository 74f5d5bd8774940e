package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatcher sends the unlock request, retrying internally.
type Dispatcher interface {
	Unlock(ctx context.Context) ([]types.UnlockAttempt, error)
}

// Recorder persists the audit trail of an unlock.
type Recorder interface {
	Record(ctx context.Context, ev types.UnlockEvent, frame []byte) error
}

// Authorizer is the engine's Handler: debounce, actuate, audit, re-arm the gate.
type Authorizer struct {
	Threshold  Threshold
	Debounce   *Debouncer
	Dispatcher Dispatcher
	Recorder   Recorder
	Gate       *Gate
	Log        zerolog.Logger

	now func() time.Time
}

// NewAuthorizer builds an Authorizer with the standard one-second debounce.
func NewAuthorizer(threshold float64, d Dispatcher, r Recorder, g *Gate, log zerolog.Logger) *Authorizer {
	return &Authorizer{
		Threshold:  Threshold(threshold),
		Debounce:   NewDebouncer(DefaultDebounceWindow),
		Dispatcher: d,
		Recorder:   r,
		Gate:       g,
		Log:        log,
		now:        time.Now,
	}
}

// Handle runs on the scheduler for every accepted decision.
// Exhausted unlock retries are logged and swallowed; the gate stays open.
func (a *Authorizer) Handle(ctx context.Context, d types.Decision) error {
	if !a.Debounce.Allow(a.now()) {
		a.Log.Debug().Uint64("seq", d.Frame.Seq).Msg("Unlock suppressed by debounce")
		return nil
	}

	attempts, err := a.Dispatcher.Unlock(ctx)
	if err != nil {
		a.Log.Error().Err(err).Int("attempts", len(attempts)).Msg("Unlock request failed, giving up")
		return nil
	}

	at := a.now()
	a.Gate.Block(at)

	ev := a.event(at, d.Faces)
	a.Log.Info().
		Str("event_id", ev.ID).
		Str("label", ev.Label).
		Float64("confidence", ev.Confidence).
		Int("attempts", len(attempts)).
		Msg("Door unlocked")

	if err := a.Recorder.Record(ctx, ev, d.Frame.JPEG); err != nil {
		return fmt.Errorf("failed to record unlock %s: %w", ev.ID, err)
	}
	return nil
}

// event builds the audit record from the faces above threshold; the best one names it.
func (a *Authorizer) event(at time.Time, faces []types.Face) types.UnlockEvent {
	recognized := a.Threshold.Above(faces)
	ev := types.UnlockEvent{
		ID:    uuid.NewString(),
		At:    at,
		Faces: recognized,
	}
	for _, f := range recognized {
		if ev.Label == "" || f.TopPrediction.Confidence > ev.Confidence {
			ev.Label = f.TopPrediction.Label
			ev.Confidence = f.TopPrediction.Confidence
		}
	}
	return ev
}
