// Package vision wraps the OpenCV pieces of the pipeline: camera capture,
// the Haar cascade presence check and the inference-size JPEG encoder.
package vision

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// HaarDetector is a cheap local face presence test.
// It is not safe for concurrent use; give each pool worker its own instance.
type HaarDetector struct {
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
	width        int
}

// NewHaarDetector loads the cascade at path.
// width is the grayscale downsample width used for detection, 0 keeps the frame size.
func NewHaarDetector(path string, scaleFactor float64, minNeighbors, width int) (*HaarDetector, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cascade file unavailable: %w", err)
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier from %s", path)
	}
	return &HaarDetector{
		classifier:   classifier,
		scaleFactor:  scaleFactor,
		minNeighbors: minNeighbors,
		width:        width,
	}, nil
}

// HasFace reports whether img plausibly contains at least one face.
// Conversion failures count as "no face".
func (d *HaarDetector) HasFace(img image.Image) bool {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	small := gray
	if d.width > 0 && gray.Cols() > d.width {
		small = gocv.NewMat()
		defer small.Close()
		h := gray.Rows() * d.width / gray.Cols()
		gocv.Resize(gray, &small, image.Pt(d.width, h), 0, 0, gocv.InterpolationArea)
	}

	rects := d.classifier.DetectMultiScaleWithParams(small, d.scaleFactor, d.minNeighbors, 0, image.Point{}, image.Point{})
	return len(rects) > 0
}

// Close releases the classifier.
func (d *HaarDetector) Close() error {
	return d.classifier.Close()
}
