// Package sampling reduces channel planes to a smaller set of representative
// pixels before clustering.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/yyyoichi/hdkmeans/internal/dwt"
	"github.com/yyyoichi/hdkmeans/internal/pointset"
)

var (
	ErrUnsupported = errors.New("unsupported down-sampling method")
	ErrBadPlanes   = errors.New("planes do not match the image size")
)

type Method int

const (
	// Full keeps every pixel.
	Full Method = iota
	// Nearest keeps the top-left pixel of every scale×scale block.
	Nearest
	// Area keeps the mean of every scale×scale block.
	Area
	// Random keeps round(rate·area) pixels drawn without replacement.
	Random
	// Dither keeps pixels chosen by Floyd-Steinberg diffusion of a flat
	// importance map.
	Dither
	// DitherTexture diffuses an importance map proportional to local
	// wavelet detail energy, so textured regions get more samples.
	DitherTexture
	// GradientMax keeps the pixel with the largest L1 gradient of every
	// scale×scale block.
	GradientMax
	// ResizeNearest, ResizeLinear and ResizeCubic scale an image with the
	// matching golang.org/x/image/draw kernel. They apply to image input only.
	ResizeNearest
	ResizeLinear
	ResizeCubic
)

func (m Method) String() string {
	switch m {
	case Full:
		return "full"
	case Nearest:
		return "nearest"
	case Area:
		return "area"
	case Random:
		return "random"
	case Dither:
		return "dither"
	case DitherTexture:
		return "dither-texture"
	case GradientMax:
		return "gradient-max"
	case ResizeNearest:
		return "resize-nearest"
	case ResizeLinear:
		return "resize-linear"
	case ResizeCubic:
		return "resize-cubic"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// IsResize reports whether m works on an image rather than on planes.
func (m Method) IsResize() bool { return m >= ResizeNearest && m <= ResizeCubic }

// AdjustRate raises rate so that area·rate covers k rounded up to the SIMD
// lane width. The result never exceeds 1.
func AdjustRate(rate float64, area, k int) float64 {
	if !(rate > 0) || rate > 1 {
		rate = 1
	}
	need := float64(pointset.CeilLanes(k))
	if float64(area)*rate < need {
		rate = need / float64(area)
	}
	return min(rate, 1)
}

// Scale is the block edge used by the block-based methods for rate.
func Scale(rate float64) int {
	if !(rate > 0) || rate >= 1 {
		return 1
	}
	return max(1, int(math.Round(1/math.Sqrt(rate))))
}

// Sample returns one plane per channel holding the kept pixels.
func Sample(method Method, planes [][]float32, w, h int, rate float64, rng *rand.Rand) ([][]float32, error) {
	if len(planes) == 0 || w <= 0 || h <= 0 {
		return nil, ErrBadPlanes
	}
	for c, p := range planes {
		if len(p) != w*h {
			return nil, fmt.Errorf("%w: plane %d has %d values for %dx%d", ErrBadPlanes, c, len(p), w, h)
		}
	}
	if method == Full || rate >= 1 {
		return planes, nil
	}
	switch method {
	case Nearest:
		return nearest(planes, w, h, Scale(rate)), nil
	case Area:
		return area(planes, w, h, Scale(rate)), nil
	case GradientMax:
		return gradientMax(planes, w, h, Scale(rate)), nil
	case Random:
		return gather(planes, randomIndex(w*h, rate, rng)), nil
	case Dither:
		return gather(planes, diffuse(flat(w*h, rate), w, h)), nil
	case DitherTexture:
		return gather(planes, diffuse(importance(dwt.Textureness(planes, w), rate), w, h)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, method)
}

func gather(planes [][]float32, idx []int) [][]float32 {
	out := make([][]float32, len(planes))
	for c, p := range planes {
		dst := make([]float32, len(idx))
		for i, j := range idx {
			dst[i] = p[j]
		}
		out[c] = dst
	}
	return out
}

func nearest(planes [][]float32, w, h, scale int) [][]float32 {
	idx := make([]int, 0, ((w+scale-1)/scale)*((h+scale-1)/scale))
	for y := 0; y < h; y += scale {
		for x := 0; x < w; x += scale {
			idx = append(idx, y*w+x)
		}
	}
	return gather(planes, idx)
}

func area(planes [][]float32, w, h, scale int) [][]float32 {
	out := make([][]float32, len(planes))
	for c, p := range planes {
		dst := make([]float32, 0, ((w+scale-1)/scale)*((h+scale-1)/scale))
		for y := 0; y < h; y += scale {
			for x := 0; x < w; x += scale {
				var (
					sum float64
					cnt int
				)
				for yy := y; yy < min(y+scale, h); yy++ {
					for xx := x; xx < min(x+scale, w); xx++ {
						sum += float64(p[yy*w+xx])
						cnt++
					}
				}
				dst = append(dst, float32(sum/float64(cnt)))
			}
		}
		out[c] = dst
	}
	return out
}

// gradientMax keeps, per block, the pixel whose forward differences summed
// over channels are largest. Ties keep the first pixel in raster order.
func gradientMax(planes [][]float32, w, h, scale int) [][]float32 {
	grad := func(i, x, y int) float32 {
		var g float32
		for _, p := range planes {
			if x+1 < w {
				g += abs32(p[i+1] - p[i])
			}
			if y+1 < h {
				g += abs32(p[i+w] - p[i])
			}
		}
		return g
	}
	idx := make([]int, 0, ((w+scale-1)/scale)*((h+scale-1)/scale))
	for y := 0; y < h; y += scale {
		for x := 0; x < w; x += scale {
			best, bestG := y*w+x, float32(-1)
			for yy := y; yy < min(y+scale, h); yy++ {
				for xx := x; xx < min(x+scale, w); xx++ {
					i := yy*w + xx
					if g := grad(i, xx, yy); g > bestG {
						best, bestG = i, g
					}
				}
			}
			idx = append(idx, best)
		}
	}
	return gather(planes, idx)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func randomIndex(n int, rate float64, rng *rand.Rand) []int {
	count := min(n, max(1, int(math.Round(rate*float64(n)))))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates.
	for i := range count {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:count]
}
