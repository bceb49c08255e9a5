// Package yuv converts images to channel-separated float planes and back.
package yuv

import (
	"image"
	"image/color"
)

// https://github.com/opencv/opencv/blob/0e88b49a53842f0f7cdc4c61b98c283be7e5057c/modules/imgproc/src/opencl/color_yuv.cl#L148-L234

const delta = .5
const (
	yr = 0.299
	yg = 0.587
	yb = 0.114
	uf = 0.492
	vf = 0.877
)

type ColorSpace int

const (
	RGB ColorSpace = iota
	YUV
)

func ColorToYUVBatch(pixels []color.Color, y, u, v []float32, alpha []uint16) {
	for i, pixel := range pixels {
		r, g, b, a := channels8(pixel)

		yVal := yr*r + yg*g + yb*b
		y[i] = yVal
		u[i] = uf*(b-yVal) + delta
		v[i] = vf*(r-yVal) + delta
		alpha[i] = a
	}
}

func ColorToRGBBatch(pixels []color.Color, r, g, b []float32, alpha []uint16) {
	for i, pixel := range pixels {
		r[i], g[i], b[i], alpha[i] = channels8(pixel)
	}
}

func channels8(c color.Color) (r, g, b float32, a uint16) {
	r32, g32, b32, a32 := c.RGBA()
	return float32(r32 >> 8), float32(g32 >> 8), float32(b32 >> 8), uint16(a32)
}

const (
	vr = 1.140
	ug = -0.395
	vg = -0.581
	ub = 2.032
)

func YUVToRGBA64Batch(y, u, v []float32, alpha []uint16, pixels []color.RGBA64) {
	for i := range pixels {
		yVal := y[i]
		uDelta := u[i] - delta
		vDelta := v[i] - delta

		r := yVal + vr*vDelta
		g := yVal + ug*uDelta + vg*vDelta
		b := yVal + ub*uDelta

		pixels[i] = color.RGBA64{R: clip16(r), G: clip16(g), B: clip16(b), A: alpha[i]}
	}
}

func RGBToRGBA64Batch(r, g, b []float32, alpha []uint16, pixels []color.RGBA64) {
	for i := range pixels {
		pixels[i] = color.RGBA64{R: clip16(r[i]), G: clip16(g[i]), B: clip16(b[i]), A: alpha[i]}
	}
}

func clip16(rgb float32) uint16 {
	if rgb < 0 {
		return 0
	}
	if rgb > 255 {
		return 65535
	}
	return uint16(rgb * 257.0)
}

// Planes holds an image as one float plane per channel in row-major order.
type Planes struct {
	Width, Height int
	Space         ColorSpace
	Alpha         []uint16
	Channels      [][]float32
}

func FromImage(src image.Image, space ColorSpace) *Planes {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	area := w * h
	p := &Planes{
		Width:    w,
		Height:   h,
		Space:    space,
		Alpha:    make([]uint16, area),
		Channels: [][]float32{make([]float32, area), make([]float32, area), make([]float32, area)},
	}
	pixels := make([]color.Color, area)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixels[idx] = src.At(x, y)
			idx++
		}
	}
	if space == YUV {
		ColorToYUVBatch(pixels, p.Channels[0], p.Channels[1], p.Channels[2], p.Alpha)
	} else {
		ColorToRGBBatch(pixels, p.Channels[0], p.Channels[1], p.Channels[2], p.Alpha)
	}
	return p
}

// Image rebuilds an RGBA64 image from three channels. Missing alpha is opaque.
func (p *Planes) Image() image.Image {
	area := p.Width * p.Height
	dst := image.NewRGBA64(image.Rect(0, 0, p.Width, p.Height))
	alpha := p.Alpha
	if len(alpha) != area {
		alpha = make([]uint16, area)
		for i := range alpha {
			alpha[i] = 0xffff
		}
	}
	pixels := make([]color.RGBA64, area)
	c := p.Channels
	if p.Space == YUV {
		YUVToRGBA64Batch(c[0], c[1], c[2], alpha, pixels)
	} else {
		RGBToRGBA64Batch(c[0], c[1], c[2], alpha, pixels)
	}
	idx := 0
	for y := range p.Height {
		for x := range p.Width {
			dst.SetRGBA64(x, y, pixels[idx])
			idx++
		}
	}
	return dst
}

// Crop returns copies of the planes without border pixels on every side.
// A border that would leave nothing returns p unchanged.
func (p *Planes) Crop(border int) *Planes {
	if border <= 0 || 2*border >= p.Width || 2*border >= p.Height {
		return p
	}
	w, h := p.Width-2*border, p.Height-2*border
	out := &Planes{Width: w, Height: h, Space: p.Space, Channels: make([][]float32, len(p.Channels))}
	for c, src := range p.Channels {
		out.Channels[c] = cropPlane(src, p.Width, border, w, h)
	}
	if len(p.Alpha) == p.Width*p.Height {
		out.Alpha = make([]uint16, 0, w*h)
		for y := border; y < border+h; y++ {
			out.Alpha = append(out.Alpha, p.Alpha[y*p.Width+border:y*p.Width+border+w]...)
		}
	}
	return out
}

func cropPlane(src []float32, width, border, w, h int) []float32 {
	dst := make([]float32, 0, w*h)
	for y := border; y < border+h; y++ {
		dst = append(dst, src[y*width+border:y*width+border+w]...)
	}
	return dst
}
