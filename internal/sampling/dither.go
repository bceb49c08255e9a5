package sampling

func flat(n int, rate float64) []float32 {
	m := make([]float32, n)
	for i := range m {
		m[i] = float32(rate)
	}
	return m
}

// importance scales a non-negative map so its mean equals rate, clipping at
// one. A map without mass falls back to a flat map.
func importance(tex []float32, rate float64) []float32 {
	var sum float64
	for _, v := range tex {
		sum += float64(v)
	}
	if sum == 0 {
		return flat(len(tex), rate)
	}
	scale := rate * float64(len(tex)) / sum
	m := make([]float32, len(tex))
	for i, v := range tex {
		m[i] = float32(min(1, float64(v)*scale))
	}
	return m
}

// diffuse binarizes m with Floyd-Steinberg error diffusion and returns the
// indices of the set pixels in raster order. m is overwritten.
func diffuse(m []float32, w, h int) []int {
	var idx []int
	for y := range h {
		for x := range w {
			i := y*w + x
			v := m[i]
			var q float32
			if v >= 0.5 {
				q = 1
				idx = append(idx, i)
			}
			e := v - q
			if x+1 < w {
				m[i+1] += e * 7 / 16
			}
			if y+1 < h {
				if x > 0 {
					m[i+w-1] += e * 3 / 16
				}
				m[i+w] += e * 5 / 16
				if x+1 < w {
					m[i+w+1] += e * 1 / 16
				}
			}
		}
	}
	return idx
}
