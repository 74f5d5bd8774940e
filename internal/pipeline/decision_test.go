package pipeline

import (
	"testing"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
)

func faces(confidences ...float64) []types.Face {
	out := make([]types.Face, len(confidences))
	for i, c := range confidences {
		out[i] = types.Face{TopPrediction: types.Prediction{Label: "p", Confidence: c}}
	}
	return out
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name  string
		faces []types.Face
		want  bool
	}{
		{"No faces", nil, false},
		{"Below", faces(0.5, 0.79), false},
		{"Equal is rejected", faces(0.8), false},
		{"Just above", faces(0.8000001), true},
		{"Any face suffices", faces(0.1, 0.95), true},
	}

	th := Threshold(0.8)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.Accept(tt.faces); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThresholdAbove(t *testing.T) {
	got := Threshold(0.8).Above(faces(0.9, 0.8, 0.5, 0.85))
	if len(got) != 2 || got[0].TopPrediction.Confidence != 0.9 || got[1].TopPrediction.Confidence != 0.85 {
		t.Errorf("Unexpected faces above threshold: %+v", got)
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name  string
		faces []types.Face
		want  bool
	}{
		{"No faces", nil, false},
		{"Lower bound inclusive", faces(0.3), true},
		{"Upper bound inclusive", faces(0.9), true},
		{"Inside", faces(0.6), true},
		{"Above max", faces(0.95), false},
		{"Below min", faces(0.29), false},
		{"Any face suffices", faces(0.95, 0.5), true},
	}

	r := Range{Min: 0.3, Max: 0.9}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Accept(tt.faces); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(time.Second)
	t0 := time.Now()

	var passed []time.Duration
	for i := 0; i < 25; i++ {
		at := time.Duration(i) * 100 * time.Millisecond
		if d.Allow(t0.Add(at)) {
			passed = append(passed, at)
		}
	}

	want := []time.Duration{0, time.Second, 2 * time.Second}
	if len(passed) != len(want) {
		t.Fatalf("Expected %v to pass, got %v", want, passed)
	}
	for i := range want {
		if passed[i] != want[i] {
			t.Errorf("Pass %d at %v, want %v", i, passed[i], want[i])
		}
	}
}
