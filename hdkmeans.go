package hdkmeans

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/yyyoichi/hdkmeans/internal/kmeans"
	"github.com/yyyoichi/hdkmeans/internal/labelpack"
	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidK         = kmeans.ErrInvalidK
	ErrInvalidPoints    = kmeans.ErrInvalidPoints
	ErrInvalidCriteria  = kmeans.ErrInvalidCriteria
	ErrInvalidLabels    = kmeans.ErrInvalidLabels
	ErrInvalidWeights   = kmeans.ErrInvalidWeights
	ErrInvalidParameter = kmeans.ErrInvalidParameter
	ErrClusteringFailed = kmeans.ErrClusteringFailed
	ErrClosed           = errors.New("kmeans is closed")
)

type (
	PointSet     = pointset.Set
	Layout       = pointset.Layout
	MeanFunction = kmeans.MeanFunction
	InitStrategy = kmeans.InitStrategy
	Criteria     = kmeans.Criteria
	Event        = kmeans.Event
)

const (
	LayoutAuto     = pointset.Auto
	PointMajor     = pointset.PointMajor
	DimensionMajor = pointset.DimensionMajor
)

const (
	ArithmeticMean      = kmeans.ArithmeticMean
	MinMaxMidpoint      = kmeans.MinMaxMidpoint
	GaussianMean        = kmeans.GaussianMean
	InverseGaussianMean = kmeans.InverseGaussianMean
	HarmonicMean        = kmeans.HarmonicMean
)

const (
	UniformRandomPoints       = kmeans.UniformRandomPoints
	UniformRandomBox          = kmeans.UniformRandomBox
	ProbabilisticPP           = kmeans.ProbabilisticPP
	MultiStartProbabilisticPP = kmeans.MultiStartProbabilisticPP
)

// NewPointMajor wraps data holding n points of d values each.
func NewPointMajor(n, d int, data []float64) (*PointSet, error) {
	return pointset.NewPointMajor(n, d, data)
}

// NewDimensionMajor wraps data holding d rows of n values, one row per dimension.
func NewDimensionMajor(d, n int, data []float64) (*PointSet, error) {
	return pointset.NewDimensionMajor(d, n, data)
}

// ConvertLayout returns ps in the requested layout.
func ConvertLayout(ps *PointSet, l Layout) *PointSet { return ps.Convert(l) }

// Cluster partitions points into k clusters with the specified options.
// This is a convenience function that creates a KMeans instance and calls its Cluster method.
func Cluster(ctx context.Context, points *PointSet, k int, opts ...Option) (*Result, error) {
	km, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return km.Cluster(ctx, points, k)
}

// Assign labels every point with its nearest centroid and returns the
// labels together with the compactness.
func Assign(points *PointSet, centroids *mat.Dense) ([]int, float64, error) {
	return kmeans.Assign(points, centroids, 0)
}

type Result struct {
	// Centroids holds one row per cluster.
	Centroids   *mat.Dense
	Labels      []int
	Compactness float64
	Attempt     int
	Iterations  int
	Trace       []float64
	Layout      Layout
}

// K returns the number of clusters.
func (r *Result) K() int {
	k, _ := r.Centroids.Dims()
	return k
}

// PackLabels returns the labels packed at ceil(log2 K) bits each and the
// number of bits written.
func (r *Result) PackLabels() ([]uint64, int, error) {
	return labelpack.Pack(r.Labels, r.K())
}

// UnpackLabels reverses Result.PackLabels for n labels of k clusters.
func UnpackLabels(data []uint64, n, k int) ([]int, error) {
	return labelpack.Unpack(data, n, k)
}

type KMeans struct {
	engine *kmeans.Engine
	closed atomic.Bool
}

// New initializes a clustering engine.
// Initialization, mean function, criteria and attempts can be optionally specified.
// For default values, refer to the kmeans.Default* values.
func New(opts ...Option) (*KMeans, error) {
	var s settings
	if err := s.apply(opts...); err != nil {
		return nil, err
	}
	e, err := kmeans.NewEngine(s.engine)
	if err != nil {
		return nil, err
	}
	if s.weights != nil {
		if err := e.SetWeightMap(s.weights); err != nil {
			return nil, err
		}
	}
	return &KMeans{engine: e}, nil
}

// Cluster runs every attempt and returns the most compact one.
func (km *KMeans) Cluster(ctx context.Context, points *PointSet, k int) (*Result, error) {
	return km.cluster(ctx, points, k, nil)
}

// ClusterFromLabels starts the first attempt from labels instead of an
// initializer. With zero iterations the centroids are the update of labels.
func (km *KMeans) ClusterFromLabels(ctx context.Context, points *PointSet, k int, labels []int) (*Result, error) {
	if labels == nil {
		return nil, ErrInvalidLabels
	}
	return km.cluster(ctx, points, k, labels)
}

func (km *KMeans) cluster(ctx context.Context, points *PointSet, k int, labels []int) (*Result, error) {
	if km.closed.Load() {
		return nil, ErrClosed
	}
	r, err := km.engine.Cluster(ctx, points, k, labels)
	if err != nil {
		return nil, err
	}
	return &Result{
		Centroids:   r.Centroids,
		Labels:      r.Labels,
		Compactness: r.Compactness,
		Attempt:     r.Attempt,
		Iterations:  r.Iterations,
		Trace:       r.Trace,
		Layout:      r.Layout,
	}, nil
}

// SetSigma changes the Gaussian sigma of the weighted mean functions.
func (km *KMeans) SetSigma(sigma float64) error { return km.engine.SetSigma(sigma) }

// SetSignalMax changes the largest expected signal value.
func (km *KMeans) SetSignalMax(signalMax float64) error { return km.engine.SetSignalMax(signalMax) }

func (km *KMeans) SetPPTrials(n int)   { km.engine.SetPPTrials(n) }
func (km *KMeans) SetMSPPTrials(n int) { km.engine.SetMSPPTrials(n) }

func (km *KMeans) SetCriteria(c Criteria) error { return km.engine.SetCriteria(c) }

// SetWeightMap sets one non-negative weight per point. nil clears it.
func (km *KMeans) SetWeightMap(w []float64) error { return km.engine.SetWeightMap(w) }

// Close releases the weight map. Later calls to Cluster fail with ErrClosed.
func (km *KMeans) Close() error {
	if km.closed.Swap(true) {
		return nil
	}
	return km.engine.SetWeightMap(nil)
}
