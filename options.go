package hdkmeans

import (
	"fmt"
	"log/slog"

	"github.com/yyyoichi/hdkmeans/internal/clustering"
	"github.com/yyyoichi/hdkmeans/internal/kmeans"
	"github.com/yyyoichi/hdkmeans/internal/yuv"
)

// Option configures New and NewImageClusterer. Options that only concern
// images are ignored by New.
type Option func(*settings) error

type settings struct {
	engine  kmeans.Config
	weights []float64
	image   clustering.Config
	space   yuv.ColorSpace
}

func (s *settings) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

// WithInit selects the centroid initializer. The default is UniformRandomPoints.
func WithInit(strategy InitStrategy) Option {
	return func(s *settings) error {
		s.engine.Init = strategy
		return nil
	}
}

// WithMean selects the centroid update. The default is ArithmeticMean.
func WithMean(mean MeanFunction) Option {
	return func(s *settings) error {
		s.engine.Mean = mean
		return nil
	}
}

// WithCriteria limits each attempt to maxIterations update steps and stops
// earlier once the relative change of compactness is at most epsilon.
// Zero iterations are allowed and skip the Lloyd loop.
func WithCriteria(maxIterations int, epsilon float64) Option {
	return func(s *settings) error {
		if maxIterations < 0 || epsilon < 0 {
			return fmt.Errorf("%w: iterations %d, epsilon %v", ErrInvalidCriteria, maxIterations, epsilon)
		}
		c := kmeans.Criteria{MaxIterations: maxIterations, Epsilon: epsilon}
		s.engine.Criteria, s.engine.CriteriaSet = c, true
		s.image.Criteria, s.image.CriteriaSet = c, true
		return nil
	}
}

// WithAttempts runs n independent attempts and keeps the most compact one.
func WithAttempts(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return fmt.Errorf("%w: attempts %d", ErrInvalidParameter, n)
		}
		s.engine.Attempts = n
		s.image.Attempts = n
		return nil
	}
}

// WithSeed fixes the random seed. Attempt a uses seed+a.
func WithSeed(seed uint64) Option {
	return func(s *settings) error {
		s.engine.Seed = seed
		s.image.Seed = seed
		return nil
	}
}

// WithWorkers caps the number of goroutines. The default is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *settings) error {
		s.engine.Workers = n
		s.image.Workers = n
		return nil
	}
}

// WithLayout forces a point layout. The default LayoutAuto picks
// DimensionMajor when there are many more points than dimensions.
func WithLayout(l Layout) Option {
	return func(s *settings) error {
		s.engine.Layout = l
		s.image.Layout = l
		return nil
	}
}

// WithSigma sets the Gaussian sigma of GaussianMean and InverseGaussianMean.
func WithSigma(sigma float64) Option {
	return func(s *settings) error {
		if !(sigma > 0) {
			return fmt.Errorf("%w: sigma %v", ErrInvalidParameter, sigma)
		}
		s.engine.Sigma = sigma
		s.image.Sigma = sigma
		return nil
	}
}

// WithSignalMax sets the largest expected signal value, 255 by default.
func WithSignalMax(signalMax float64) Option {
	return func(s *settings) error {
		if !(signalMax > 0) {
			return fmt.Errorf("%w: signal max %v", ErrInvalidParameter, signalMax)
		}
		s.engine.SignalMax = signalMax
		s.image.SignalMax = signalMax
		return nil
	}
}

func WithPPTrials(n int) Option {
	return func(s *settings) error {
		s.engine.PPTrials = n
		s.image.PPTrials = n
		return nil
	}
}

func WithMSPPTrials(n int) Option {
	return func(s *settings) error {
		s.engine.MSPPTrials = n
		s.image.MSPPTrials = n
		return nil
	}
}

// WithWeightMap sets one non-negative weight per point. Image clusterers
// reject it.
func WithWeightMap(w []float64) Option {
	return func(s *settings) error {
		s.weights = w
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) error {
		s.engine.Logger = l
		s.image.Logger = l
		return nil
	}
}

// WithObserver registers a callback run after every assignment step.
func WithObserver(fn func(Event)) Option {
	return func(s *settings) error {
		s.engine.Observer = fn
		s.image.Observer = fn
		return nil
	}
}
