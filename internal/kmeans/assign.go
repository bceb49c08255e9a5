package kmeans

import (
	"math"
	"sync"

	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"gonum.org/v1/gonum/mat"
)

// blockSize is the number of points one assignment task covers. Partial
// compactness sums are reduced in block order, so the total does not depend
// on the worker count.
const blockSize = 4096

// assigner labels every point with its nearest centroid by squared Euclidean
// distance. Ties go to the lowest centroid index.
type assigner struct {
	ps      *pointset.Set
	workers int
	weights []float64

	dists   []float64
	next    []int
	tmp     []float64
	partial []float64
	changed []int
}

func newAssigner(ps *pointset.Set, workers int, weights []float64) *assigner {
	n := ps.Len()
	blocks := (n + blockSize - 1) / blockSize
	a := &assigner{
		ps:      ps,
		workers: workers,
		weights: weights,
		dists:   make([]float64, n),
		next:    make([]int, n),
		partial: make([]float64, blocks),
		changed: make([]int, blocks),
	}
	if ps.Layout() == pointset.DimensionMajor {
		a.tmp = make([]float64, n)
	}
	return a
}

// assign relabels the points in place and returns the compactness and the
// number of labels that changed.
func (a *assigner) assign(centroids *mat.Dense, labels []int) (float64, int) {
	n := a.ps.Len()
	blocks := len(a.partial)
	if a.workers <= 1 || blocks == 1 {
		for b := range blocks {
			a.block(b, min((b+1)*blockSize, n), centroids, labels)
		}
	} else {
		workers := min(a.workers, blocks)
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for b := w; b < blocks; b += workers {
					a.block(b, min((b+1)*blockSize, n), centroids, labels)
				}
			}()
		}
		wg.Wait()
	}
	var (
		compactness float64
		changed     int
	)
	for b := range blocks {
		compactness += a.partial[b]
		changed += a.changed[b]
	}
	return compactness, changed
}

func (a *assigner) block(b, end int, centroids *mat.Dense, labels []int) {
	start := b * blockSize
	if a.ps.Layout() == pointset.PointMajor {
		a.pointMajor(start, end, centroids)
	} else {
		a.dimensionMajor(start, end, centroids)
	}
	var (
		sum     float64
		changed int
	)
	for i := start; i < end; i++ {
		if a.weights == nil {
			sum += a.dists[i]
		} else {
			sum += a.weights[i] * a.dists[i]
		}
		if labels[i] != a.next[i] {
			labels[i] = a.next[i]
			changed++
		}
	}
	a.partial[b], a.changed[b] = sum, changed
}

func (a *assigner) pointMajor(start, end int, centroids *mat.Dense) {
	data, stride := a.ps.Raw()
	d := a.ps.Dim()
	craw := centroids.RawMatrix()
	for i := start; i < end; i++ {
		row := data[i*stride : i*stride+d]
		best, label := math.Inf(1), 0
		for k := range craw.Rows {
			c := craw.Data[k*craw.Stride : k*craw.Stride+d]
			var sum float64
			for j, v := range row {
				diff := v - c[j]
				sum += float64(diff * diff)
			}
			if sum < best {
				best, label = sum, k
			}
		}
		a.dists[i], a.next[i] = best, label
	}
}

// dimensionMajor sweeps each dimension row over a contiguous run of points,
// which keeps the inner loop free of strides.
func (a *assigner) dimensionMajor(start, end int, centroids *mat.Dense) {
	data, stride := a.ps.Raw()
	d := a.ps.Dim()
	craw := centroids.RawMatrix()
	best, next, tmp := a.dists[start:end], a.next[start:end], a.tmp[start:end]
	for k := range craw.Rows {
		c := craw.Data[k*craw.Stride : k*craw.Stride+d]
		clear(tmp)
		for j, cj := range c {
			row := data[j*stride+start : j*stride+end]
			for p, v := range row {
				diff := v - cj
				tmp[p] += float64(diff * diff)
			}
		}
		if k == 0 {
			copy(best, tmp)
			clear(next)
			continue
		}
		for p, v := range tmp {
			if v < best[p] {
				best[p], next[p] = v, k
			}
		}
	}
}

// Assign labels every point with its nearest centroid and returns the labels
// and the compactness.
func Assign(ps *pointset.Set, centroids *mat.Dense, workers int) ([]int, float64, error) {
	if ps == nil || ps.Len() == 0 || ps.Dim() == 0 {
		return nil, 0, ErrInvalidPoints
	}
	if _, c := centroids.Dims(); c != ps.Dim() {
		return nil, 0, ErrDimensionMismatch
	}
	labels := make([]int, ps.Len())
	compactness, _ := newAssigner(ps, workers, nil).assign(centroids, labels)
	return labels, compactness, nil
}
