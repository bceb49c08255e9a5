package kmeans

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// InitStrategy selects how the first centroids of an attempt are chosen.
type InitStrategy int

const (
	// UniformRandomPoints picks K distinct points.
	UniformRandomPoints InitStrategy = iota
	// UniformRandomBox draws K points uniformly from the bounding box.
	UniformRandomBox
	// ProbabilisticPP is greedy K-means++: each new centroid is the best of
	// several D²-weighted candidates.
	ProbabilisticPP
	// MultiStartProbabilisticPP runs ProbabilisticPP several times and keeps
	// the lowest potential.
	MultiStartProbabilisticPP
)

func (s InitStrategy) String() string {
	switch s {
	case UniformRandomPoints:
		return "random-points"
	case UniformRandomBox:
		return "random-box"
	case ProbabilisticPP:
		return "pp"
	case MultiStartProbabilisticPP:
		return "mspp"
	}
	return fmt.Sprintf("init(%d)", int(s))
}

func (s InitStrategy) valid() bool { return s >= UniformRandomPoints && s <= MultiStartProbabilisticPP }

// seeder produces initial centroids for one attempt.
type seeder struct {
	ps       *pointset.Set
	k        int
	rng      *rand.Rand
	weights  []float64
	trials   int
	msTrials int
}

func (s *seeder) seed(strategy InitStrategy) *mat.Dense {
	switch strategy {
	case UniformRandomBox:
		return s.randomBox()
	case ProbabilisticPP:
		c, _ := s.pp()
		return c
	case MultiStartProbabilisticPP:
		var (
			best      *mat.Dense
			potential = math.Inf(1)
		)
		for range max(s.msTrials, 1) {
			c, p := s.pp()
			if best == nil || p < potential {
				best, potential = c, p
			}
		}
		return best
	default:
		return s.randomPoints()
	}
}

// randomPoints picks K distinct point indices by rejection sampling.
func (s *seeder) randomPoints() *mat.Dense {
	n := s.ps.Len()
	seen := make(map[int]struct{}, s.k)
	idx := make([]int, 0, s.k)
	for len(idx) < s.k {
		i := s.rng.IntN(n)
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	return s.ps.Gather(idx)
}

func (s *seeder) randomBox() *mat.Dense {
	lo, hi := s.ps.Bounds()
	c := mat.NewDense(s.k, s.ps.Dim(), nil)
	for j := range lo {
		u := distuv.Uniform{Min: lo[j], Max: hi[j], Src: s.rng}
		for k := range s.k {
			c.Set(k, j, u.Rand())
		}
	}
	return c
}

// pp runs greedy K-means++ and returns the centroids and their potential,
// the weighted sum of squared distances to the nearest centroid.
func (s *seeder) pp() (*mat.Dense, float64) {
	n, d := s.ps.Len(), s.ps.Dim()
	c := mat.NewDense(s.k, d, nil)
	var (
		dist  = make([]float64, n)
		cand  = make([]float64, n)
		best  = make([]float64, n)
		prob  = make([]float64, n)
		point = make([]float64, d)
	)

	first := s.rng.IntN(n)
	if s.weights != nil {
		if i, ok := sampleuv.NewWeighted(s.weights, s.rng).Take(); ok {
			first = i
		}
	}
	c.SetRow(0, s.ps.Point(first, point))
	distancesTo(s.ps, c.RawRowView(0), dist)

	for i := range prob {
		prob[i] = s.weight(i) * dist[i]
	}
	sampler := sampleuv.NewWeighted(prob, s.rng)
	potential := s.sum(dist)
	for k := 1; k < s.k; k++ {
		var (
			bestIdx       = -1
			bestPotential = math.Inf(1)
		)
		for range max(s.trials, 1) {
			i, ok := sampler.Take()
			if !ok {
				// Every remaining point coincides with a centroid.
				i = s.rng.IntN(n)
			} else {
				sampler.Reweight(i, prob[i])
			}
			distancesTo(s.ps, s.ps.Point(i, point), cand)
			var p float64
			for q, v := range cand {
				cand[q] = math.Min(v, dist[q])
				p += s.weight(q) * cand[q]
			}
			if bestIdx < 0 || p < bestPotential {
				bestIdx, bestPotential = i, p
				best, cand = cand, best
			}
		}
		c.SetRow(k, s.ps.Point(bestIdx, point))
		dist, best = best, dist
		potential = bestPotential
		for i := range prob {
			prob[i] = s.weight(i) * dist[i]
		}
		sampler.ReweightAll(prob)
	}
	return c, potential
}

func (s *seeder) weight(i int) float64 {
	if s.weights == nil {
		return 1
	}
	return s.weights[i]
}

func (s *seeder) sum(dist []float64) float64 {
	var p float64
	for i, v := range dist {
		p += s.weight(i) * v
	}
	return p
}
