package kmeans

import (
	"fmt"
	"math"

	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"gonum.org/v1/gonum/mat"
)

// MeanFunction selects how a centroid is recomputed from its members.
// Assignment is squared Euclidean for every mean function.
type MeanFunction int

const (
	// ArithmeticMean averages the member points.
	ArithmeticMean MeanFunction = iota
	// MinMaxMidpoint takes (min+max)/2 per dimension.
	MinMaxMidpoint
	// GaussianMean weights members by exp(-d²/2σ²) of their distance to the
	// previous centroid.
	GaussianMean
	// InverseGaussianMean weights members by 1/(exp(-d²/2σ²)+0.01), favouring
	// members far from the previous centroid.
	InverseGaussianMean
	// HarmonicMean weights members by 1/(d²+1).
	HarmonicMean
)

func (m MeanFunction) String() string {
	switch m {
	case ArithmeticMean:
		return "arithmetic"
	case MinMaxMidpoint:
		return "minmax"
	case GaussianMean:
		return "gaussian"
	case InverseGaussianMean:
		return "inverse-gaussian"
	case HarmonicMean:
		return "harmonic"
	}
	return fmt.Sprintf("mean(%d)", int(m))
}

func (m MeanFunction) valid() bool { return m >= ArithmeticMean && m <= HarmonicMean }

// labelsOnly reports whether the update depends on the labels alone, so an
// unchanged labelling is a fixed point.
func (m MeanFunction) labelsOnly() bool { return m == ArithmeticMean || m == MinMaxMidpoint }

// updater recomputes centroids. Its buffers are reused across iterations of
// one attempt and must not be shared between attempts.
type updater struct {
	ps      *pointset.Set
	mean    MeanFunction
	table   *WeightTable
	weights []float64 // optional per-point weight map
	acc     *accumulator
	dist    []float64
	pw      []float64
}

func newUpdater(ps *pointset.Set, k int, mean MeanFunction, table *WeightTable, weights []float64) *updater {
	u := &updater{
		ps:      ps,
		mean:    mean,
		table:   table,
		weights: weights,
		acc:     newAccumulator(k, ps.Dim()),
	}
	if mean != ArithmeticMean && mean != MinMaxMidpoint {
		u.dist = make([]float64, ps.Len())
	}
	if u.dist != nil || weights != nil {
		u.pw = make([]float64, ps.Len())
	}
	return u
}

// update writes the new centroids into next. Clusters without members keep
// their row from prev. It returns the number of such clusters.
func (u *updater) update(labels []int, prev, next *mat.Dense) int {
	if u.mean == MinMaxMidpoint {
		u.accumulateRange(labels)
	} else {
		u.accumulate(labels, u.pointWeights(labels, prev))
	}
	var empty int
	k, _ := next.Dims()
	for c := range k {
		dst := next.RawRowView(c)
		var ok bool
		if u.mean == MinMaxMidpoint {
			ok = u.acc.midpoint(c, dst)
		} else {
			ok = u.acc.mean(c, dst)
		}
		if !ok {
			copy(dst, prev.RawRowView(c))
			empty++
		}
	}
	return empty
}

// pointWeights returns the per-point update weight, or nil for uniform weights.
func (u *updater) pointWeights(labels []int, prev *mat.Dense) []float64 {
	if u.dist == nil {
		return u.weights
	}
	distancesToLabeled(u.ps, prev, labels, u.dist)
	for i, sq := range u.dist {
		var w float64
		switch u.mean {
		case GaussianMean:
			w = u.table.Gauss(math.Sqrt(sq))
		case InverseGaussianMean:
			w = u.table.InverseGauss(math.Sqrt(sq))
		case HarmonicMean:
			w = 1 / (sq + 1)
		}
		if u.weights != nil {
			w *= u.weights[i]
		}
		u.pw[i] = w
	}
	return u.pw
}

func (u *updater) accumulate(labels []int, pw []float64) {
	a := u.acc
	a.reset()
	data, stride := u.ps.Raw()
	n, d := u.ps.Len(), u.ps.Dim()
	for i, k := range labels {
		a.count[k]++
		if pw == nil {
			a.weight[k]++
		} else {
			a.weight[k] += pw[i]
		}
	}
	if u.ps.Layout() == pointset.PointMajor {
		for i := range n {
			row := data[i*stride : i*stride+d]
			sum := a.sum[labels[i]*d:]
			if pw == nil {
				for j, v := range row {
					sum[j] += v
				}
				continue
			}
			w := pw[i]
			for j, v := range row {
				sum[j] += float64(w * v)
			}
		}
		return
	}
	for j := range d {
		row := data[j*stride : j*stride+n]
		if pw == nil {
			for i, v := range row {
				a.sum[labels[i]*d+j] += v
			}
			continue
		}
		for i, v := range row {
			a.sum[labels[i]*d+j] += float64(pw[i] * v)
		}
	}
}

func (u *updater) accumulateRange(labels []int) {
	a := u.acc
	a.resetRange()
	d := u.ps.Dim()
	data, stride := u.ps.Raw()
	member := func(i int) bool { return u.weights == nil || u.weights[i] > 0 }
	for i, k := range labels {
		if member(i) {
			a.count[k]++
		}
	}
	if u.ps.Layout() == pointset.PointMajor {
		for i, k := range labels {
			if !member(i) {
				continue
			}
			row := data[i*stride : i*stride+d]
			lo, hi := a.lo[k*d:(k+1)*d], a.hi[k*d:(k+1)*d]
			for j, v := range row {
				lo[j] = math.Min(lo[j], v)
				hi[j] = math.Max(hi[j], v)
			}
		}
		return
	}
	n := u.ps.Len()
	for j := range d {
		row := data[j*stride : j*stride+n]
		for i, v := range row {
			if !member(i) {
				continue
			}
			o := labels[i]*d + j
			a.lo[o] = math.Min(a.lo[o], v)
			a.hi[o] = math.Max(a.hi[o], v)
		}
	}
}
