// Package recognition is the client of the remote face recognition service.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
	"github.com/rs/zerolog"
)

const maxResponseSize = 4 << 20

// Client uploads frames and parses the detected faces.
type Client struct {
	URL  string
	HTTP *http.Client
	Log  zerolog.Logger
}

// New creates a Client. A zero timeout waits for the service indefinitely.
func New(url string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		URL:  url,
		HTTP: &http.Client{Timeout: timeout},
		Log:  log,
	}
}

// Recognize sends one JPEG frame. Any failure is logged and reported as no faces.
func (c *Client) Recognize(ctx context.Context, jpeg []byte) []types.Face {
	start := time.Now()

	faces, raw, err := c.request(ctx, jpeg)
	if err != nil {
		c.Log.Error().Err(err).Dur("latency", time.Since(start)).Msg("Error occurred while executing face recognition request!")
		return nil
	}

	c.Log.Info().
		Dur("latency", time.Since(start)).
		Int("faces", len(faces)).
		Str("response", strings.TrimSpace(string(raw))).
		Msg("Face recognition request completed")
	return faces
}

func (c *Client) request(ctx context.Context, jpeg []byte) ([]types.Face, []byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "frame.jpeg")
	if err != nil {
		return nil, nil, err
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, raw, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var parsed types.RecognitionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, raw, fmt.Errorf("malformed response: %w", err)
	}
	return parsed.Faces, raw, nil
}
