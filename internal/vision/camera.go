package vision

import (
	"context"
	"fmt"
	"image"

	"github.com/andresmejia3/doorman/internal/capture"
	"gocv.io/x/gocv"
)

// Camera opens capture handles through gocv.VideoCapture.
type Camera struct{}

// Open connects to url and keeps the driver buffer at a single frame so reads
// always return the freshest image.
func (Camera) Open(_ context.Context, url string) (capture.Stream, error) {
	vc, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open video capture: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %s is not opened", url)
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	return &cvStream{vc: vc, mat: gocv.NewMat()}, nil
}

type cvStream struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

func (s *cvStream) Read() (image.Image, error) {
	if !s.vc.Read(&s.mat) || s.mat.Empty() {
		return nil, capture.ErrReadFailed
	}
	gocv.Flip(s.mat, &s.mat, 1)
	return s.mat.ToImage()
}

func (s *cvStream) Close() error {
	s.mat.Close()
	return s.vc.Close()
}
