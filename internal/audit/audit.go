// Package audit writes the on-disk trail of unlocks and collected training frames.
package audit

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresmejia3/doorman/internal/store"
	"github.com/andresmejia3/doorman/internal/types"
	"github.com/andresmejia3/doorman/internal/utils"
	"github.com/rs/zerolog"
)

// FramesDir is the subdirectory of the log path holding one folder per unlock.
const FramesDir = "unlock-frames"

// Recorder saves the frame that triggered an unlock and the faces that authorized it.
type Recorder struct {
	Dir    string
	Events store.EventStore // optional
	Log    zerolog.Logger
}

// Record writes <Dir>/unlock-frames/<timestamp>/frame.jpeg plus an empty
// <label>-<confidence> marker per recognized face, then the database row.
func (r *Recorder) Record(ctx context.Context, ev types.UnlockEvent, frame []byte) error {
	dir := filepath.Join(r.Dir, FramesDir, utils.Timestamp(ev.At))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "frame.jpeg"), frame, 0644); err != nil {
		return fmt.Errorf("failed to write audit frame: %w", err)
	}

	for _, f := range ev.Faces {
		name := f.TopPrediction.Label + "-" + formatConfidence(f.TopPrediction.Confidence)
		if err := os.WriteFile(filepath.Join(dir, sanitize(name)), nil, 0644); err != nil {
			return fmt.Errorf("failed to write audit marker %q: %w", name, err)
		}
	}

	if r.Events != nil {
		if err := r.Events.InsertUnlockEvent(ctx, ev); err != nil {
			return fmt.Errorf("failed to store unlock event: %w", err)
		}
	}

	r.Log.Debug().Str("dir", dir).Int("faces", len(ev.Faces)).Msg("Unlock recorded")
	return nil
}

// formatConfidence renders c for marker names: shortest round-trip digits with
// a fractional part ("1.0", "0.95"), exponent form below 1e-4 or from 1e16 on ("5e-05").
func formatConfidence(c float64) string {
	if a := math.Abs(c); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(c, 'e', -1, 64)
	}
	s := strconv.FormatFloat(c, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// sanitize keeps labels from escaping the audit folder.
func sanitize(name string) string {
	return filepath.Base(filepath.Clean(string(filepath.Separator) + name))
}
