// Package clustering turns channel planes or images into a clustering run:
// it crops, down-samples, reshapes and dispatches to the K-means engine,
// then refines the centroids against the full-resolution pixels.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/yyyoichi/hdkmeans/internal/kmeans"
	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"github.com/yyyoichi/hdkmeans/internal/refine"
	"github.com/yyyoichi/hdkmeans/internal/sampling"
	"github.com/yyyoichi/hdkmeans/internal/yuv"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidPlanes = errors.New("invalid channel planes")
	ErrNoQuantizer   = errors.New("quantizer method needs a quantizer")
	ErrUnknownMethod = errors.New("unknown clustering method")
)

type Method int

const (
	// RandomSample uses K random samples as centroids without iterating.
	RandomSample Method = iota
	// KMeans seeds with random points and updates with the arithmetic mean.
	KMeans
	// KMeansPP seeds with greedy K-means++.
	KMeansPP
	// KMeansMSPP seeds with multi-start K-means++ and updates with the
	// min/max midpoint.
	KMeansMSPP
	// KMeansGaussInvPP seeds with K-means++ and updates with the inverse
	// Gaussian weighted mean.
	KMeansGaussInvPP
	// KMeansQuantizer starts from the labels of a Quantizer and refines them
	// with the arithmetic mean.
	KMeansQuantizer
)

func (m Method) String() string {
	switch m {
	case RandomSample:
		return "random-sample"
	case KMeans:
		return "kmeans"
	case KMeansPP:
		return "kmeans-pp"
	case KMeansMSPP:
		return "kmeans-mspp"
	case KMeansGaussInvPP:
		return "kmeans-gauss-inv-pp"
	case KMeansQuantizer:
		return "kmeans-quantizer"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

func (m Method) engine() (kmeans.InitStrategy, kmeans.MeanFunction, error) {
	switch m {
	case RandomSample, KMeans:
		return kmeans.UniformRandomPoints, kmeans.ArithmeticMean, nil
	case KMeansPP, KMeansQuantizer:
		return kmeans.ProbabilisticPP, kmeans.ArithmeticMean, nil
	case KMeansMSPP:
		return kmeans.MultiStartProbabilisticPP, kmeans.MinMaxMidpoint, nil
	case KMeansGaussInvPP:
		return kmeans.ProbabilisticPP, kmeans.InverseGaussianMean, nil
	}
	return 0, 0, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
}

// Quantizer produces a coarse labelling that KMeansQuantizer refines.
type Quantizer interface {
	Quantize(ctx context.Context, points *pointset.Set, k int) ([]int, error)
}

type Config struct {
	Method     Method
	K          int
	SampleRate float64
	Downsample sampling.Method
	// AlignToVector drops trailing samples so their count is a multiple of
	// the SIMD lane width.
	AlignToVector bool
	// CropBoundary excludes this many border pixels from sampling and
	// refinement. Labels still cover the whole image.
	CropBoundary int
	Refine       refine.Method
	Criteria     kmeans.Criteria
	CriteriaSet  bool
	Attempts     int
	Seed         uint64
	Workers      int
	Sigma        float64
	SignalMax    float64
	PPTrials     int
	MSPPTrials   int
	Layout       pointset.Layout
	Quantizer    Quantizer
	Logger       *slog.Logger
	Observer     func(kmeans.Event)
}

type Result struct {
	Centroids *mat.Dense
	// Labels holds one label per pixel of the input, row-major.
	Labels        []int
	Width, Height int
	Space         yuv.ColorSpace
	Alpha         []uint16
	// Compactness is measured on the samples the engine saw.
	Compactness float64
	Samples     int
	SampleRate  float64
	Attempt     int
	Iterations  int
}

// Planes returns the input with every pixel replaced by its centroid.
func (r *Result) Planes() *yuv.Planes {
	_, d := r.Centroids.Dims()
	p := &yuv.Planes{Width: r.Width, Height: r.Height, Space: r.Space, Alpha: r.Alpha, Channels: make([][]float32, d)}
	for j := range d {
		plane := make([]float32, len(r.Labels))
		for i, l := range r.Labels {
			plane[i] = float32(r.Centroids.At(l, j))
		}
		p.Channels[j] = plane
	}
	return p
}

type Clusterer struct {
	cfg    Config
	engine *kmeans.Engine
	log    *slog.Logger

	mu      sync.Mutex
	refiner *refine.Refiner
}

func New(cfg Config) (*Clusterer, error) {
	if cfg.K <= 0 {
		return nil, fmt.Errorf("%w: k=%d", kmeans.ErrInvalidK, cfg.K)
	}
	seed, mean, err := cfg.Method.engine()
	if err != nil {
		return nil, err
	}
	if cfg.Method == KMeansQuantizer && cfg.Quantizer == nil {
		return nil, ErrNoQuantizer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SignalMax == 0 {
		cfg.SignalMax = kmeans.DefaultSignalMax
	}
	engine, err := kmeans.NewEngine(kmeans.Config{
		Init:        seed,
		Mean:        mean,
		Criteria:    cfg.Criteria,
		CriteriaSet: cfg.CriteriaSet,
		Attempts:    cfg.Attempts,
		Seed:        cfg.Seed,
		Workers:     cfg.Workers,
		Layout:      cfg.Layout,
		PPTrials:    cfg.PPTrials,
		MSPPTrials:  cfg.MSPPTrials,
		Sigma:       cfg.Sigma,
		SignalMax:   cfg.SignalMax,
		Logger:      cfg.Logger,
		Observer:    cfg.Observer,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Method == RandomSample {
		if err := engine.SetCriteria(kmeans.Criteria{}); err != nil {
			return nil, err
		}
	}
	return &Clusterer{
		cfg:     cfg,
		engine:  engine,
		log:     cfg.Logger.With("method", cfg.Method.String(), "k", cfg.K),
		refiner: refine.New(cfg.Refine, cfg.SignalMax),
	}, nil
}

// Engine exposes the underlying engine for parameter changes between runs.
func (c *Clusterer) Engine() *kmeans.Engine { return c.engine }

// ClusterPlanes clusters row-major channel planes of the given width.
func (c *Clusterer) ClusterPlanes(ctx context.Context, planes [][]float32, width int) (*Result, error) {
	full, err := newPlanes(planes, width)
	if err != nil {
		return nil, err
	}
	return c.clusterPlanes(ctx, full)
}

// ClusterImage converts img to planes in the given color space and clusters
// them. Resize methods scale the image itself before conversion.
func (c *Clusterer) ClusterImage(ctx context.Context, img image.Image, space yuv.ColorSpace) (*Result, error) {
	full := yuv.FromImage(img, space)
	if full.Width == 0 || full.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidPlanes)
	}
	if !c.cfg.Downsample.IsResize() {
		return c.clusterPlanes(ctx, full)
	}

	region := full.Crop(c.cfg.CropBoundary)
	src := img
	if region != full {
		b := img.Bounds()
		inner := b.Inset(c.cfg.CropBoundary)
		if sub, ok := img.(interface {
			SubImage(image.Rectangle) image.Image
		}); ok {
			src = sub.SubImage(inner)
		}
	}
	rate := c.adjustRate(region.Width * region.Height)
	resized, err := sampling.Resize(src, c.cfg.Downsample, rate)
	if err != nil {
		return nil, err
	}
	small := yuv.FromImage(resized, space)
	samples, err := pointset.FromPlanes(small.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlanes, err)
	}
	return c.run(ctx, samples, region, full, rate)
}

func newPlanes(planes [][]float32, width int) (*yuv.Planes, error) {
	if len(planes) == 0 || width <= 0 {
		return nil, fmt.Errorf("%w: %d planes of width %d", ErrInvalidPlanes, len(planes), width)
	}
	n := len(planes[0])
	if n == 0 || n%width != 0 {
		return nil, fmt.Errorf("%w: %d values is not a multiple of width %d", ErrInvalidPlanes, n, width)
	}
	for i, p := range planes {
		if len(p) != n {
			return nil, fmt.Errorf("%w: plane %d has %d values, want %d", ErrInvalidPlanes, i, len(p), n)
		}
	}
	return &yuv.Planes{Width: width, Height: n / width, Channels: planes}, nil
}

func (c *Clusterer) clusterPlanes(ctx context.Context, full *yuv.Planes) (*Result, error) {
	region := full.Crop(c.cfg.CropBoundary)
	rate := c.adjustRate(region.Width * region.Height)
	rng := rand.New(rand.NewPCG(c.cfg.Seed, samplingStream))
	sampled, err := sampling.Sample(c.cfg.Downsample, region.Channels, region.Width, region.Height, rate, rng)
	if err != nil {
		return nil, err
	}
	samples, err := pointset.FromPlanes(sampled)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlanes, err)
	}
	return c.run(ctx, samples, region, full, rate)
}

const samplingStream = 0x5851f42d4c957f2d

func (c *Clusterer) adjustRate(area int) float64 {
	rate := sampling.AdjustRate(c.cfg.SampleRate, area, c.cfg.K)
	if c.cfg.SampleRate > 0 && rate > c.cfg.SampleRate {
		c.log.Info("sample rate raised", "requested", c.cfg.SampleRate, "rate", rate, "area", area)
	}
	return rate
}

func (c *Clusterer) run(ctx context.Context, samples *pointset.Set, region, full *yuv.Planes, rate float64) (*Result, error) {
	k := c.cfg.K
	if full.Width*full.Height < k {
		return nil, fmt.Errorf("%w: k=%d for %d pixels", kmeans.ErrInvalidK, k, full.Width*full.Height)
	}
	var (
		guide *pointset.Set
		err   error
	)
	if samples.Len() < k {
		c.log.Warn("too few samples, clustering every pixel", "samples", samples.Len())
		if guide, err = pointset.FromPlanes(region.Channels); err != nil {
			return nil, err
		}
		samples = guide
		rate = 1
	}
	if c.cfg.AlignToVector {
		if trimmed := samples.Trim(pointset.Lanes()); trimmed.Len() >= k {
			if trimmed.Len() != samples.Len() {
				c.log.Debug("samples trimmed to lane width", "from", samples.Len(), "to", trimmed.Len())
			}
			samples = trimmed
		}
	}

	var initial []int
	if c.cfg.Method == KMeansQuantizer {
		if initial, err = c.cfg.Quantizer.Quantize(ctx, samples, k); err != nil {
			return nil, fmt.Errorf("quantize: %w", err)
		}
	}
	res, err := c.engine.Cluster(ctx, samples, k, initial)
	if err != nil {
		if errors.Is(err, kmeans.ErrClusteringFailed) {
			c.log.Error("clustering failed", "err", err)
		}
		return nil, err
	}
	centroids := res.Centroids
	if rows, _ := centroids.Dims(); rows != k {
		return nil, fmt.Errorf("%w: %d centroids for k=%d", kmeans.ErrClusteringFailed, rows, k)
	}

	workers := c.engine.Config().Workers
	if c.cfg.Refine != refine.Off {
		if guide == nil {
			if guide, err = pointset.FromPlanes(region.Channels); err != nil {
				return nil, err
			}
		}
		labels, _, err := kmeans.Assign(guide, centroids, workers)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		centroids, err = c.refiner.Refine(guide, labels, centroids)
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	if region != full || guide == nil {
		if guide, err = pointset.FromPlanes(full.Channels); err != nil {
			return nil, err
		}
	}
	labels, _, err := kmeans.Assign(guide, centroids, workers)
	if err != nil {
		return nil, err
	}
	return &Result{
		Centroids:   centroids,
		Labels:      labels,
		Width:       full.Width,
		Height:      full.Height,
		Space:       full.Space,
		Alpha:       full.Alpha,
		Compactness: res.Compactness,
		Samples:     samples.Len(),
		SampleRate:  rate,
		Attempt:     res.Attempt,
		Iterations:  res.Iterations,
	}, nil
}
