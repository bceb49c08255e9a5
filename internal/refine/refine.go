// Package refine re-estimates cluster centroids against the full-resolution
// guide after clustering on a down-sampled set.
package refine

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"gonum.org/v1/gonum/mat"
)

var ErrUnsupported = errors.New("unsupported refinement")

type Method int

const (
	Off Method = iota
	// HistogramSmall weights members by how rare their distance to the
	// centroid is within the cluster, (max−h+1)³ over a 1-D histogram.
	HistogramSmall
	// HistogramLarge weights members by how rare their color is within the
	// cluster, (max−h+1) over a 64-bins-per-channel histogram. D ≤ 3.
	HistogramLarge
	// BoundarySeeking moves each centroid to the member that is close to it
	// and far from the neighbouring centroids.
	BoundarySeeking
	// Medoid moves each centroid to the member with the smallest summed L1
	// distance to all other members.
	Medoid
)

func (m Method) String() string {
	switch m {
	case Off:
		return "off"
	case HistogramSmall:
		return "histogram-small"
	case HistogramLarge:
		return "histogram-large"
	case BoundarySeeking:
		return "boundary-seeking"
	case Medoid:
		return "medoid"
	}
	return fmt.Sprintf("refine(%d)", int(m))
}

const (
	largeBins     = 64
	smallPower    = 3
	boundaryScale = 0.9
	thirdWeight   = 0.01
	minDistance   = 1e-3
)

// Refiner owns the scratch buffers of one refinement configuration. It is
// not safe for concurrent use.
type Refiner struct {
	method    Method
	signalMax float64

	order []int
	start []int
	hist  []int
	used  []int
	buf   []float64
	cbuf  []float64
	score []float64
	pairs []pair
}

func New(method Method, signalMax float64) *Refiner {
	return &Refiner{method: method, signalMax: signalMax}
}

func (r *Refiner) Method() Method { return r.method }

// Refine returns new centroids. labels assign every guide point to a row of
// centroids. Clusters without members keep their centroid.
func (r *Refiner) Refine(guide *pointset.Set, labels []int, centroids *mat.Dense) (*mat.Dense, error) {
	k, d := centroids.Dims()
	if d != guide.Dim() || len(labels) != guide.Len() {
		return nil, fmt.Errorf("%w: guide %dx%d, labels %d, centroids %dx%d",
			ErrUnsupported, guide.Len(), guide.Dim(), len(labels), k, d)
	}
	out := mat.DenseCopyOf(centroids)
	if r.method == Off {
		return out, nil
	}
	if r.method == HistogramLarge && d > 3 {
		return nil, fmt.Errorf("%w: %s needs at most 3 channels, got %d", ErrUnsupported, r.method, d)
	}
	r.group(labels, k)
	r.buf = grow(r.buf, d)
	for c := range k {
		members := r.order[r.start[c]:r.start[c+1]]
		if len(members) == 0 {
			continue
		}
		dst := out.RawRowView(c)
		switch r.method {
		case HistogramSmall:
			r.histogramSmall(guide, members, dst)
		case HistogramLarge:
			r.histogramLarge(guide, members, dst)
		case BoundarySeeking:
			r.boundary(guide, members, c, centroids, dst)
		case Medoid:
			r.medoid(guide, members, dst)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, r.method)
		}
	}
	return out, nil
}

// group sorts point indices by label with a counting sort.
func (r *Refiner) group(labels []int, k int) {
	r.start = growInt(r.start, k+1)
	clear(r.start)
	for _, l := range labels {
		r.start[l+1]++
	}
	for c := range k {
		r.start[c+1] += r.start[c]
	}
	r.order = growInt(r.order, len(labels))
	r.used = growInt(r.used, k)
	copy(r.used, r.start[:k])
	for i, l := range labels {
		r.order[r.used[l]] = i
		r.used[l]++
	}
}

// weightedMean writes Σw·x/Σw of members into dst, where weight returns
// the weight of the n-th member.
func (r *Refiner) weightedMean(guide *pointset.Set, members []int, weight func(n int) float64, dst []float64) {
	sum := grow(r.cbuf, len(dst))
	r.cbuf = sum
	clear(sum)
	var total float64
	for n, i := range members {
		w := weight(n)
		p := guide.Point(i, r.buf)
		for j, v := range p {
			sum[j] += w * v
		}
		total += w
	}
	if !(total > 0) {
		return
	}
	for j := range dst {
		dst[j] = sum[j] / total
	}
}

func (r *Refiner) histogramSmall(guide *pointset.Set, members []int, dst []float64) {
	bins := int(math.Ceil(math.Sqrt(float64(guide.Dim()))*r.signalMax)) + 1
	r.hist = growInt(r.hist, bins)
	hist := r.hist[:bins]
	clear(hist)
	r.used = growInt(r.used, len(members))
	binOf := r.used[:len(members)]
	for n, i := range members {
		p := guide.Point(i, r.buf)
		var sq float64
		for j, v := range p {
			diff := v - dst[j]
			sq += diff * diff
		}
		b := min(int(math.Sqrt(sq)), bins-1)
		binOf[n] = b
		hist[b]++
	}
	peak := maxInt(hist)
	r.weightedMean(guide, members, func(n int) float64 {
		return math.Pow(float64(peak-hist[binOf[n]]+1), smallPower)
	}, dst)
}

func (r *Refiner) histogramLarge(guide *pointset.Set, members []int, dst []float64) {
	d := guide.Dim()
	size := 1
	for range d {
		size *= largeBins
	}
	r.hist = growInt(r.hist, size)
	hist := r.hist[:size]
	clear(hist)
	r.used = growInt(r.used, len(members))
	binOf := r.used[:len(members)]
	for n, i := range members {
		p := guide.Point(i, r.buf)
		key := 0
		for j := d - 1; j >= 0; j-- {
			b := int(p[j] * largeBins / (r.signalMax + 1))
			key = key*largeBins + min(max(b, 0), largeBins-1)
		}
		binOf[n] = key
		hist[key]++
	}
	var peak int
	for _, key := range binOf {
		peak = max(peak, hist[key])
	}
	r.weightedMean(guide, members, func(n int) float64 {
		return float64(peak - hist[binOf[n]] + 1)
	}, dst)
}

// boundary picks the member maximizing 1/dc + dn/(0.9·D·signalMax), where dc
// is the L1 distance to its own centroid and dn the L1 distance to the
// second nearest centroid plus 0.01 of the distance to the third.
func (r *Refiner) boundary(guide *pointset.Set, members []int, own int, centroids *mat.Dense, dst []float64) {
	k, d := centroids.Dims()
	norm := boundaryScale * float64(d) * r.signalMax
	best, bestScore := -1, math.Inf(-1)
	for _, i := range members {
		p := guide.Point(i, r.buf)
		dc := l1(p, centroids.RawRowView(own))
		second, third := math.Inf(1), math.Inf(1)
		for c := range k {
			if c == own {
				continue
			}
			v := l1(p, centroids.RawRowView(c))
			if v < second {
				second, third = v, second
			} else if v < third {
				third = v
			}
		}
		var dn float64
		if !math.IsInf(second, 1) {
			dn = second
		}
		if !math.IsInf(third, 1) {
			dn += thirdWeight * third
		}
		s := 1/math.Max(dc, minDistance) + dn/norm
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	copy(dst, guide.Point(best, r.buf))
}

type pair struct {
	v float64
	n int
}

// medoid finds the member with the smallest summed L1 distance to the other
// members. Per dimension the sum is |v·t − prefix| + |suffix − v·(s−t−1)|
// over the sorted values, so the cost is O(D·s·log s).
func (r *Refiner) medoid(guide *pointset.Set, members []int, dst []float64) {
	s := len(members)
	r.score = grow(r.score, s)
	score := r.score[:s]
	clear(score)
	if cap(r.pairs) < s {
		r.pairs = make([]pair, s)
	}
	pairs := r.pairs[:s]
	for j := range guide.Dim() {
		var total float64
		for n, i := range members {
			v := guide.At(i, j)
			pairs[n] = pair{v: v, n: n}
			total += v
		}
		sortPairs(pairs)
		var prefix float64
		for t, p := range pairs {
			below := p.v*float64(t) - prefix
			prefix += p.v
			above := (total - prefix) - p.v*float64(s-t-1)
			score[p.n] += below + above
		}
	}
	best := 0
	for n := 1; n < s; n++ {
		if score[n] < score[best] {
			best = n
		}
	}
	copy(dst, guide.Point(members[best], r.buf))
}

func sortPairs(p []pair) {
	slices.SortFunc(p, func(a, b pair) int {
		if c := cmp.Compare(a.v, b.v); c != 0 {
			return c
		}
		return cmp.Compare(a.n, b.n)
	})
}

func l1(a, b []float64) float64 {
	var sum float64
	for j, v := range a {
		sum += math.Abs(v - b[j])
	}
	return sum
}

func maxInt(v []int) int {
	var m int
	for _, x := range v {
		m = max(m, x)
	}
	return m
}

func grow(b []float64, n int) []float64 {
	if cap(b) < n {
		return make([]float64, n)
	}
	return b[:n]
}

func growInt(b []int, n int) []int {
	if cap(b) < n {
		return make([]int, n)
	}
	return b[:n]
}
