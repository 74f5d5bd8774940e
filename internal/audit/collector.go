package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
	"github.com/andresmejia3/doorman/internal/utils"
	"github.com/rs/zerolog"
)

// Collector saves accepted frames as labeled training images.
type Collector struct {
	Dir string
	Log zerolog.Logger

	// OnSave is called after each saved frame; optional.
	OnSave func(path string)

	now func() time.Time
}

// NewCollector creates a Collector writing into dir.
func NewCollector(dir string, log zerolog.Logger) *Collector {
	return &Collector{Dir: dir, Log: log, now: time.Now}
}

// Handle writes <Dir>/<label>-<confidence>-<timestamp>.jpeg, named after the first face.
func (c *Collector) Handle(_ context.Context, d types.Decision) error {
	if len(d.Faces) == 0 {
		return nil
	}
	top := d.Faces[0].TopPrediction

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	name := fmt.Sprintf("%s-%.2f-%s.jpeg", top.Label, top.Confidence, utils.Timestamp(c.now()))
	path := filepath.Join(c.Dir, sanitize(name))
	if err := os.WriteFile(path, d.Frame.JPEG, 0644); err != nil {
		return fmt.Errorf("failed to save collected frame: %w", err)
	}

	c.Log.Info().Str("path", path).Str("label", top.Label).Float64("confidence", top.Confidence).Msg("Frame collected")
	if c.OnSave != nil {
		c.OnSave(path)
	}
	return nil
}
