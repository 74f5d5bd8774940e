// Package capture owns the camera connection and turns it into an endless
// stream of mirrored frames.
//
// A Source never gives up: open failures are retried with a fixed backoff and
// read failures drop the handle and reopen it. Downstream stages simply see no
// frames while the camera is away.
package capture

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
	"github.com/rs/zerolog"
)

// ErrReadFailed is returned by a Stream when the capture device stops producing frames.
var ErrReadFailed = errors.New("failed to read frame from video stream")

// DefaultBackoff is the fixed delay between failed open attempts.
const DefaultBackoff = time.Second

// Stream is one open capture handle. Read returns frames already mirrored horizontally.
type Stream interface {
	Read() (image.Image, error)
	Close() error
}

// Opener opens capture handles for a camera URL.
type Opener interface {
	Open(ctx context.Context, url string) (Stream, error)
}

// Source produces frames from a single camera endpoint.
type Source struct {
	URL     string
	Opener  Opener
	Backoff time.Duration
	Log     zerolog.Logger

	now func() time.Time
}

// NewSource creates a Source with the default backoff.
func NewSource(url string, opener Opener, log zerolog.Logger) *Source {
	return &Source{
		URL:     url,
		Opener:  opener,
		Backoff: DefaultBackoff,
		Log:     log,
		now:     time.Now,
	}
}

// Run publishes frames until ctx is cancelled. publish must not block.
// Exactly one Stream is held at a time and it is closed before Run returns.
func (s *Source) Run(ctx context.Context, publish func(types.Frame)) {
	if s.now == nil {
		s.now = time.Now
	}

	for {
		stream, ok := s.open(ctx)
		if !ok {
			return
		}

		frames, err := s.drain(ctx, stream, publish)
		if cerr := stream.Close(); cerr != nil {
			s.Log.Warn().Err(cerr).Msg("Capture handle closed with error")
		}
		if ctx.Err() != nil {
			return
		}

		s.Log.Error().Err(err).Uint64("frames", frames).Msg("Video stream interrupted, reopening")

		// A handle that opens but never yields a frame would otherwise spin.
		if frames == 0 && !sleep(ctx, s.Backoff) {
			return
		}
	}
}

// open retries until a handle is obtained or ctx is done.
func (s *Source) open(ctx context.Context) (Stream, bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}
		stream, err := s.Opener.Open(ctx, s.URL)
		if err == nil {
			s.Log.Info().Str("url", s.URL).Msg("Video stream opened")
			return stream, true
		}

		s.Log.Error().Err(err).Str("url", s.URL).Dur("retry_in", s.Backoff).Msg("Cannot open video stream!")
		if !sleep(ctx, s.Backoff) {
			return nil, false
		}
	}
}

func (s *Source) drain(ctx context.Context, stream Stream, publish func(types.Frame)) (uint64, error) {
	var frames uint64
	for ctx.Err() == nil {
		img, err := stream.Read()
		if err != nil {
			return frames, err
		}
		frames++
		publish(types.Frame{At: s.now(), Image: img})
	}
	return frames, ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
