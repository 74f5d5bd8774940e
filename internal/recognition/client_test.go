package recognition

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const twoFaces = `{"faces": [
	{"bounding_box": {"left": 10, "top": 20, "right": 110, "bottom": 140},
	 "top_prediction": {"label": "alice", "confidence": 0.95},
	 "all_predictions": {"alice": 0.95, "bob": 0.03}},
	{"bounding_box": {"left": 300, "top": 40, "right": 380, "bottom": 150},
	 "top_prediction": {"label": "bob", "confidence": 0.41}}
]}`

func TestRecognize(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("Missing image form field: %v", err)
			return
		}
		got, _ := io.ReadAll(file)
		if !bytes.Equal(got, frame) {
			t.Errorf("Uploaded image mismatch: %X", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, twoFaces)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	faces := c.Recognize(context.Background(), frame)

	if len(faces) != 2 {
		t.Fatalf("Expected 2 faces, got %d", len(faces))
	}
	if faces[0].TopPrediction.Label != "alice" || faces[0].TopPrediction.Confidence != 0.95 {
		t.Errorf("Unexpected first face: %+v", faces[0].TopPrediction)
	}
	if faces[0].BoundingBox.Right != 110 || faces[1].BoundingBox.Left != 300 {
		t.Errorf("Bounding boxes not decoded: %+v %+v", faces[0].BoundingBox, faces[1].BoundingBox)
	}
	if len(faces[0].AllPredictions) == 0 {
		t.Error("Expected auxiliary predictions to be kept")
	}
}

func TestRecognizeFailuresYieldNoFaces(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
		},
		{
			name: "Malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"faces": [`)
			},
		},
		{
			name: "Wrong shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"faces": "none"}`)
			},
		},
		{
			name: "Slow service",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(time.Second):
				case <-r.Context().Done():
				}
				io.WriteString(w, twoFaces)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(srv.URL, 50*time.Millisecond, zerolog.Nop())
			if faces := c.Recognize(context.Background(), []byte("jpeg")); len(faces) != 0 {
				t.Errorf("Expected no faces, got %d", len(faces))
			}
		})
	}
}

func TestRecognizeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, zerolog.Nop())
	if faces := c.Recognize(context.Background(), []byte("jpeg")); faces != nil {
		t.Errorf("Expected nil result for transport error, got %v", faces)
	}
}

func TestRecognizeLogsLatency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"faces": []}`)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := New(srv.URL, time.Second, zerolog.New(&buf))
	c.Recognize(context.Background(), []byte("jpeg"))

	out := buf.String()
	if !strings.Contains(out, `"latency":`) || !strings.Contains(out, `"response":"{\"faces\": []}"`) {
		t.Errorf("Expected latency and raw response in log, got %s", out)
	}
}
