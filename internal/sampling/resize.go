package sampling

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Resize scales src by sqrt(rate) per axis with the kernel m selects.
func Resize(src image.Image, m Method, rate float64) (image.Image, error) {
	var scaler draw.Scaler
	switch m {
	case ResizeNearest:
		scaler = draw.NearestNeighbor
	case ResizeLinear:
		scaler = draw.BiLinear
	case ResizeCubic:
		scaler = draw.CatmullRom
	default:
		return nil, fmt.Errorf("%w: %s is not a resize method", ErrUnsupported, m)
	}
	b := src.Bounds()
	if rate >= 1 {
		return src, nil
	}
	f := math.Sqrt(rate)
	w := max(1, int(math.Round(float64(b.Dx())*f)))
	h := max(1, int(math.Round(float64(b.Dy())*f)))
	dst := image.NewRGBA64(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, nil
}
