// Package dwt provides a one-level Haar wavelet transform and a texture
// measure derived from its detail bands.
package dwt

import (
	"math"
)

// HaarDWT returns the cA, cH, cV and cD bands of a row-major plane of width
// w. Odd edges repeat the last row or column.
func HaarDWT(data []float32, w int) [][]float32 {
	h := len(data) / w

	hw, hh := (w+1)/2, (h+1)/2
	l := hw * hh
	cA := make([]float32, l)
	cH := make([]float32, l)
	cV := make([]float32, l)
	cD := make([]float32, l)

	for y0 := 0; y0 < h; y0 += 2 {
		y1 := min(y0+1, h-1)
		for x0 := 0; x0 < w; x0 += 2 {
			x1 := min(x0+1, w-1)
			a1, d1 := cacd(data[y0*w+x0], data[y1*w+x0])
			a2, d2 := cacd(data[y0*w+x1], data[y1*w+x1])

			idx := (y0/2)*hw + (x0 / 2)
			cA[idx], cV[idx] = cacd(a1, a2)
			cH[idx], cD[idx] = cacd(d1, d2)
		}
	}

	return [][]float32{cA, cH, cV, cD}
}

func cacd(v1, v2 float32) (float32, float32) {
	avr := (v1 + v2) / 2.0
	return avr * math.Sqrt2, (v1 - avr) * math.Sqrt2
}

// Textureness returns one value in [0, 1] per pixel: the detail energy of
// the 2×2 cell holding the pixel, summed over planes and divided by the
// largest cell energy. A flat image yields all zeros.
func Textureness(planes [][]float32, w int) []float32 {
	if len(planes) == 0 || w <= 0 {
		return nil
	}
	n := len(planes[0])
	h := n / w
	hw := (w + 1) / 2
	var energy []float32
	for _, p := range planes {
		bands := HaarDWT(p, w)
		if energy == nil {
			energy = make([]float32, len(bands[0]))
		}
		for i := range energy {
			ch, cv, cd := bands[1][i], bands[2][i], bands[3][i]
			energy[i] += ch*ch + cv*cv + cd*cd
		}
	}
	var peak float32
	for _, e := range energy {
		peak = max(peak, e)
	}
	out := make([]float32, n)
	if peak == 0 {
		return out
	}
	for y := range h {
		for x := range w {
			out[y*w+x] = energy[(y/2)*hw+x/2] / peak
		}
	}
	return out
}
