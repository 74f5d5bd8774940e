package types

import (
	"encoding/json"
	"image"
	"time"
)

// Frame is a single camera frame travelling through the pipeline.
// JPEG is filled by the worker pool once the frame has been resized for inference.
type Frame struct {
	Seq   uint64
	At    time.Time
	Image image.Image
	JPEG  []byte
}

// BoundingBox is the face location reported by the recognition service.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Prediction is one (label, confidence) pair. Confidence is in [0, 1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Face matches a single entry of the recognition service's "faces" array
type Face struct {
	BoundingBox    BoundingBox     `json:"bounding_box"`
	TopPrediction  Prediction      `json:"top_prediction"`
	AllPredictions json.RawMessage `json:"all_predictions,omitempty"`
}

// RecognitionResponse is the JSON document returned by the recognition service.
type RecognitionResponse struct {
	Faces []Face `json:"faces"`
}

// Decision pairs a frame with the faces recognized on it.
type Decision struct {
	Frame Frame
	Faces []Face
}

// UnlockEvent is the audit record written after a successful unlock.
type UnlockEvent struct {
	ID         string
	At         time.Time
	Label      string
	Confidence float64
	Faces      []Face
}

// Outcome of a single unlock attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransportError
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "transport_error"
}

// UnlockAttempt is the bookkeeping for one try of the unlock request.
type UnlockAttempt struct {
	At      time.Time
	Outcome Outcome
	Index   int // 0 for the initial request, 1.. for retries
	Err     error
}
