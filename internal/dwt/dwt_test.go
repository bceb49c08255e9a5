package dwt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaarDWT(t *testing.T) {
	data := []float32{
		1, 3, 5,
		1, 3, 5,
	}
	bands := HaarDWT(data, 3)
	assert.Len(t, bands, 4)
	for _, b := range bands {
		assert.Len(t, b, 2)
	}
	// cA of a 2×2 cell is twice its mean.
	assert.InDelta(t, 4.0, float64(bands[0][0]), 1e-5)
	assert.InDelta(t, 10.0, float64(bands[0][1]), 1e-5)
	// No vertical change, so the horizontal and diagonal details vanish.
	assert.InDelta(t, 0.0, float64(bands[1][0]), 1e-6)
	assert.InDelta(t, 0.0, float64(bands[3][0]), 1e-6)
	assert.InDelta(t, -2.0, float64(bands[2][0]), 1e-5)
	// Repeated last column has no horizontal change.
	assert.InDelta(t, 0.0, float64(bands[2][1]), 1e-6)
}

func TestTextureness(t *testing.T) {
	w, h := 8, 4
	flat := make([]float32, w*h)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, make([]float32, w*h), Textureness([][]float32{flat}, w))

	edge := make([]float32, w*h)
	for y := range h {
		for x := range w {
			if x%2 == 1 && x >= 4 {
				edge[y*w+x] = 200
			}
		}
	}
	tex := Textureness([][]float32{flat, edge}, w)
	assert.Len(t, tex, w*h)
	assert.Equal(t, float32(0), tex[0])
	assert.Equal(t, float32(1), tex[5])
	for _, v := range tex {
		assert.False(t, math.IsNaN(float64(v)))
		assert.LessOrEqual(t, v, float32(1))
	}
}
