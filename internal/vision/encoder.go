package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// JPEGEncoder resizes frames to the inference resolution and encodes them.
type JPEGEncoder struct {
	Width   int
	Height  int
	Quality int
}

// Encode returns img scaled to Width x Height as JPEG bytes.
func (e JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer src.Close()

	// ImageToMatRGB yields BGR channel order, which is what IMEncode expects
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(e.Width, e.Height), 0, 0, gocv.InterpolationLinear)

	quality := e.Quality
	if quality == 0 {
		quality = 90
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, resized, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
