// Package actuator talks to the door lock service.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
	"github.com/rs/zerolog"
)

// ErrExhausted is returned when every unlock attempt failed.
var ErrExhausted = errors.New("unlock attempts exhausted")

const (
	DefaultTimeout  = 300 * time.Millisecond
	DefaultAttempts = 3
)

// Client posts unlock requests. Attempts are made back to back, each bounded by
// the client timeout; the actuator is idempotent so repeats are harmless.
type Client struct {
	URL      string
	Attempts int
	HTTP     *http.Client
	Log      zerolog.Logger
}

// New creates a Client with a per-attempt timeout.
func New(url string, timeout time.Duration, attempts int, log zerolog.Logger) *Client {
	return &Client{
		URL:      url,
		Attempts: attempts,
		HTTP:     &http.Client{Timeout: timeout},
		Log:      log,
	}
}

// Unlock sends the request until one attempt gets a 2xx or Attempts run out.
// The returned slice records every attempt made.
func (c *Client) Unlock(ctx context.Context) ([]types.UnlockAttempt, error) {
	attempts := make([]types.UnlockAttempt, 0, c.Attempts)

	for i := 0; i < c.Attempts; i++ {
		err := c.post(ctx)
		a := types.UnlockAttempt{At: time.Now(), Index: i}
		if err == nil {
			a.Outcome = types.OutcomeSuccess
			attempts = append(attempts, a)
			return attempts, nil
		}

		a.Outcome = types.OutcomeTransportError
		a.Err = err
		attempts = append(attempts, a)
		c.Log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", c.Attempts).Msg("Unlock attempt failed")

		if ctx.Err() != nil {
			break
		}
	}

	last := attempts[len(attempts)-1].Err
	return attempts, fmt.Errorf("%w after %d tries: %v", ErrExhausted, len(attempts), last)
}

func (c *Client) post(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
