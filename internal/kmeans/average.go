package kmeans

import "math"

// accumulator keeps weighted per-cluster sums of a K×D centroid update.
type accumulator struct {
	k, d   int
	sum    []float64
	weight []float64
	count  []int
	lo, hi []float64
}

func newAccumulator(k, d int) *accumulator {
	return &accumulator{
		k:      k,
		d:      d,
		sum:    make([]float64, k*d),
		weight: make([]float64, k),
		count:  make([]int, k),
	}
}

func (a *accumulator) reset() {
	clear(a.sum)
	clear(a.weight)
	clear(a.count)
}

// resetRange prepares the min/max buffers used by the midpoint update.
func (a *accumulator) resetRange() {
	if a.lo == nil {
		a.lo = make([]float64, a.k*a.d)
		a.hi = make([]float64, a.k*a.d)
	}
	for i := range a.lo {
		a.lo[i] = math.Inf(1)
		a.hi[i] = math.Inf(-1)
	}
	clear(a.weight)
	clear(a.count)
}

// mean writes sum/weight of cluster k into dst. It reports false and leaves
// dst untouched when the cluster carries no weight.
func (a *accumulator) mean(k int, dst []float64) bool {
	w := a.weight[k]
	if a.count[k] == 0 || !(w > 0) {
		return false
	}
	s := a.sum[k*a.d : (k+1)*a.d]
	for j, v := range s {
		dst[j] = v / w
	}
	return true
}

// midpoint writes (min+max)/2 of cluster k into dst.
func (a *accumulator) midpoint(k int, dst []float64) bool {
	if a.count[k] == 0 {
		return false
	}
	lo, hi := a.lo[k*a.d:(k+1)*a.d], a.hi[k*a.d:(k+1)*a.d]
	for j := range dst {
		dst[j] = (lo[j] + hi[j]) / 2
	}
	return true
}
