package yuv

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x * 20), uint8(y * 30), uint8(x + y), 255})
		}
	}
	return img
}

func TestFromImageRGB(t *testing.T) {
	p := FromImage(gradient(4, 3), RGB)
	assert.Equal(t, 4, p.Width)
	assert.Equal(t, 3, p.Height)
	assert.Len(t, p.Channels, 3)
	// pixel (2, 1)
	assert.Equal(t, float32(40), p.Channels[0][6])
	assert.Equal(t, float32(30), p.Channels[1][6])
	assert.Equal(t, float32(3), p.Channels[2][6])
	assert.Equal(t, uint16(0xffff), p.Alpha[6])
}

func TestRoundTrip(t *testing.T) {
	src := gradient(5, 5)
	for _, space := range []ColorSpace{RGB, YUV} {
		got := FromImage(src, space).Image()
		for y := range 5 {
			for x := range 5 {
				want := src.RGBAAt(x, y)
				r, g, b, a := got.At(x, y).RGBA()
				assert.InDelta(t, float64(want.R), float64(r>>8), 1)
				assert.InDelta(t, float64(want.G), float64(g>>8), 1)
				assert.InDelta(t, float64(want.B), float64(b>>8), 1)
				assert.Equal(t, uint32(0xffff), a)
			}
		}
	}
}

func TestSubImageBounds(t *testing.T) {
	src := gradient(6, 6).SubImage(image.Rect(2, 3, 5, 6))
	p := FromImage(src, RGB)
	assert.Equal(t, 3, p.Width)
	assert.Equal(t, 3, p.Height)
	assert.Equal(t, float32(40), p.Channels[0][0])
	assert.Equal(t, float32(90), p.Channels[1][0])
}

func TestCrop(t *testing.T) {
	p := FromImage(gradient(6, 5), RGB)
	c := p.Crop(1)
	assert.Equal(t, 4, c.Width)
	assert.Equal(t, 3, c.Height)
	assert.Equal(t, p.Channels[0][1*6+1], c.Channels[0][0])
	assert.Equal(t, p.Channels[1][3*6+4], c.Channels[1][2*4+3])
	assert.Len(t, c.Alpha, 12)

	assert.Same(t, p, p.Crop(0))
	assert.Same(t, p, p.Crop(3))
}
