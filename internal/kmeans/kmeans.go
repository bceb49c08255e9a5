// Package kmeans implements a generalized K-means engine: pluggable
// initialization, squared Euclidean assignment over either point layout,
// pluggable centroid updates and best-of-N attempts.
package kmeans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidK          = errors.New("k must be between 1 and the number of points")
	ErrInvalidPoints     = errors.New("point set must hold at least one point of one dimension")
	ErrInvalidCriteria   = errors.New("invalid termination criteria")
	ErrInvalidLabels     = errors.New("initial labels do not fit the point set")
	ErrInvalidWeights    = errors.New("weight map does not fit the point set")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrDimensionMismatch = errors.New("centroid and point dimensions differ")
	ErrClusteringFailed  = errors.New("clustering failed")
)

const (
	DefaultSigma      = 30.0
	DefaultSignalMax  = 255.0
	DefaultPPTrials   = 3
	DefaultMSPPTrials = 3
	DefaultAttempts   = 1
)

// seedStream is the second PCG word. Attempt a of a run seeded s draws from
// PCG(s+a, seedStream).
const seedStream = 0x9e3779b97f4a7c15

var DefaultCriteria = Criteria{MaxIterations: 20, Epsilon: 1e-4}

// Criteria ends an attempt after MaxIterations update steps, or earlier when
// Epsilon > 0 and the relative change of compactness falls to Epsilon.
type Criteria struct {
	MaxIterations int
	Epsilon       float64
}

func (c Criteria) validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations %d", ErrInvalidCriteria, c.MaxIterations)
	}
	if c.Epsilon < 0 || math.IsNaN(c.Epsilon) {
		return fmt.Errorf("%w: epsilon %v", ErrInvalidCriteria, c.Epsilon)
	}
	return nil
}

// Event describes one finished assignment step.
type Event struct {
	Attempt     int
	Iteration   int
	Compactness float64
	Changed     int
}

type Config struct {
	Init InitStrategy
	Mean MeanFunction
	// Criteria defaults to DefaultCriteria when left zero unless
	// CriteriaSet is true.
	Criteria    Criteria
	CriteriaSet bool
	Attempts    int
	Seed        uint64
	// Workers caps the goroutines of one run. Zero means GOMAXPROCS.
	Workers    int
	Layout     pointset.Layout
	PPTrials   int
	MSPPTrials int
	Sigma      float64
	SignalMax  float64
	Logger     *slog.Logger
	// Observer, when set, is called after every assignment step. Attempts
	// running in parallel call it concurrently.
	Observer func(Event)
}

func (c *Config) setDefaults() {
	if !c.CriteriaSet && c.Criteria == (Criteria{}) {
		c.Criteria = DefaultCriteria
	}
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.PPTrials <= 0 {
		c.PPTrials = DefaultPPTrials
	}
	if c.MSPPTrials <= 0 {
		c.MSPPTrials = DefaultMSPPTrials
	}
	if c.Sigma == 0 {
		c.Sigma = DefaultSigma
	}
	if c.SignalMax == 0 {
		c.SignalMax = DefaultSignalMax
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

type Result struct {
	// Centroids holds one row per cluster.
	Centroids   *mat.Dense
	Labels      []int
	// Compactness is the weighted sum of squared distances measured by the
	// last assignment step.
	Compactness float64
	// Attempt is the index of the attempt that produced the result.
	Attempt    int
	Iterations int
	// Trace holds the compactness after every assignment of the winning attempt.
	Trace  []float64
	Layout pointset.Layout
}

// Engine runs clustering. Setters may be called between runs; a run works on
// a snapshot of the configuration taken when it starts.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	weights []float64
	table   atomic.Pointer[WeightTable]
}

func NewEngine(cfg Config) (*Engine, error) {
	cfg.setDefaults()
	if err := cfg.Criteria.validate(); err != nil {
		return nil, err
	}
	if !cfg.Init.valid() {
		return nil, fmt.Errorf("%w: init strategy %d", ErrInvalidParameter, cfg.Init)
	}
	if !cfg.Mean.valid() {
		return nil, fmt.Errorf("%w: mean function %d", ErrInvalidParameter, cfg.Mean)
	}
	t, err := NewWeightTable(cfg.Sigma, cfg.SignalMax)
	if err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	e.table.Store(t)
	return e, nil
}

// SetSigma rebuilds the weight table for a new Gaussian sigma.
func (e *Engine) SetSigma(sigma float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := NewWeightTable(sigma, e.cfg.SignalMax)
	if err != nil {
		return err
	}
	e.cfg.Sigma = sigma
	e.table.Store(t)
	return nil
}

// SetSignalMax rebuilds the weight table for a new signal range.
func (e *Engine) SetSignalMax(signalMax float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := NewWeightTable(e.cfg.Sigma, signalMax)
	if err != nil {
		return err
	}
	e.cfg.SignalMax = signalMax
	e.table.Store(t)
	return nil
}

func (e *Engine) SetPPTrials(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.PPTrials = max(n, 1)
}

func (e *Engine) SetMSPPTrials(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.MSPPTrials = max(n, 1)
}

func (e *Engine) SetCriteria(c Criteria) error {
	if err := c.validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Criteria = c
	return nil
}

// SetWeightMap sets per-point weights used by seeding, updates and the
// compactness. A nil map clears it. The slice is copied.
func (e *Engine) SetWeightMap(w []float64) error {
	var sum float64
	for i, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight %d is %v", ErrInvalidWeights, i, v)
		}
		sum += v
	}
	if w != nil && !(sum > 0) {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if w == nil {
		e.weights = nil
		return nil
	}
	e.weights = append([]float64(nil), w...)
	return nil
}

// Table returns the weight table currently in use.
func (e *Engine) Table() *WeightTable { return e.table.Load() }

func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Cluster partitions ps into k clusters. When initial is non-nil the first
// attempt starts from those labels instead of an initializer; with zero
// iterations that attempt reduces to one centroid update.
func (e *Engine) Cluster(ctx context.Context, ps *pointset.Set, k int, initial []int) (*Result, error) {
	e.mu.Lock()
	cfg, weights := e.cfg, e.weights
	e.mu.Unlock()
	table := e.table.Load()

	if ps == nil || ps.Len() == 0 || ps.Dim() == 0 {
		return nil, ErrInvalidPoints
	}
	n := ps.Len()
	if k <= 0 || k > n {
		return nil, fmt.Errorf("%w: k=%d, n=%d", ErrInvalidK, k, n)
	}
	if weights != nil && len(weights) != n {
		return nil, fmt.Errorf("%w: %d weights for %d points", ErrInvalidWeights, len(weights), n)
	}
	if initial != nil {
		if len(initial) != n {
			return nil, fmt.Errorf("%w: %d labels for %d points", ErrInvalidLabels, len(initial), n)
		}
		for i, l := range initial {
			if l < 0 || l >= k {
				return nil, fmt.Errorf("%w: label %d of point %d is outside [0,%d)", ErrInvalidLabels, l, i, k)
			}
		}
	}

	ps = ps.Convert(cfg.Layout)
	inner := cfg.Workers
	if cfg.Attempts > 1 && cfg.Workers > 1 {
		inner = 1
	}

	results := make([]*attempt, cfg.Attempts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for a := range cfg.Attempts {
		g.Go(func() error {
			r := &attempt{
				index:   a,
				cfg:     &cfg,
				ps:      ps,
				k:       k,
				table:   table,
				weights: weights,
				workers: inner,
			}
			if a == 0 {
				r.initial = initial
			}
			if err := r.run(gctx); err != nil {
				return err
			}
			results[a] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.compactness < best.compactness {
			best = r
		}
	}
	if rows, _ := best.centroids.Dims(); rows != k {
		cfg.Logger.Error("centroid count mismatch", "rows", rows, "k", k)
		return nil, fmt.Errorf("%w: %d centroids for k=%d", ErrClusteringFailed, rows, k)
	}
	if math.IsNaN(best.compactness) || math.IsInf(best.compactness, 0) {
		cfg.Logger.Error("non-finite compactness", "attempt", best.index)
		return nil, fmt.Errorf("%w: compactness %v", ErrClusteringFailed, best.compactness)
	}
	return &Result{
		Centroids:   best.centroids,
		Labels:      best.labels,
		Compactness: best.compactness,
		Attempt:     best.index,
		Iterations:  best.iterations,
		Trace:       best.trace,
		Layout:      ps.Layout(),
	}, nil
}

type attempt struct {
	index   int
	cfg     *Config
	ps      *pointset.Set
	k       int
	table   *WeightTable
	weights []float64
	workers int
	initial []int

	centroids   *mat.Dense
	labels      []int
	compactness float64
	iterations  int
	trace       []float64
}

func (a *attempt) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var (
		cfg = a.cfg
		rng = rand.New(rand.NewPCG(cfg.Seed+uint64(a.index), seedStream))
		s   = &seeder{
			ps:       a.ps,
			k:        a.k,
			rng:      rng,
			weights:  a.weights,
			trials:   cfg.PPTrials,
			msTrials: cfg.MSPPTrials,
		}
		as   = newAssigner(a.ps, a.workers, a.weights)
		up   = newUpdater(a.ps, a.k, cfg.Mean, a.table, a.weights)
		next = mat.NewDense(a.k, a.ps.Dim(), nil)
		log  = cfg.Logger.With("attempt", a.index)
	)
	a.labels = make([]int, a.ps.Len())

	if a.initial != nil {
		// Empty clusters of the supplied labelling fall back to random points.
		prev := s.randomPoints()
		copy(a.labels, a.initial)
		if !cfg.Mean.labelsOnly() {
			// Distance weights are measured from the plain mean of each cluster.
			base := mat.NewDense(a.k, a.ps.Dim(), nil)
			newUpdater(a.ps, a.k, ArithmeticMean, a.table, a.weights).update(a.labels, prev, base)
			prev = base
		}
		if empty := up.update(a.labels, prev, next); empty > 0 {
			log.Debug("empty cluster kept previous centroid", "iteration", 0, "empty", empty)
		}
		a.centroids = next
		next = mat.NewDense(a.k, a.ps.Dim(), nil)
		a.iterations = 1
		if cfg.Criteria.MaxIterations == 0 {
			a.compactness = a.score()
			a.trace = append(a.trace, a.compactness)
			a.notify(a.compactness, 0)
			return nil
		}
	} else {
		a.centroids = s.seed(cfg.Init)
	}

	compactness, changed := as.assign(a.centroids, a.labels)
	a.trace = append(a.trace, compactness)
	a.notify(compactness, changed)

	for a.iterations < cfg.Criteria.MaxIterations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if changed == 0 && cfg.Mean.labelsOnly() && len(a.trace) > 1 {
			break
		}
		if empty := up.update(a.labels, a.centroids, next); empty > 0 {
			log.Debug("empty cluster kept previous centroid", "iteration", a.iterations, "empty", empty)
		}
		a.centroids, next = next, a.centroids
		a.iterations++

		prev := compactness
		compactness, changed = as.assign(a.centroids, a.labels)
		a.trace = append(a.trace, compactness)
		a.notify(compactness, changed)
		if eps := cfg.Criteria.Epsilon; eps > 0 && math.Abs(prev-compactness) <= eps*prev {
			break
		}
	}
	if changed > 0 && cfg.Mean.labelsOnly() && cfg.Criteria.MaxIterations > 0 {
		// The loop ended on an assignment; bring the centroids in line with
		// the returned labels. Compactness stays that of the last assignment.
		if empty := up.update(a.labels, a.centroids, next); empty > 0 {
			log.Debug("empty cluster kept previous centroid", "iteration", a.iterations, "empty", empty)
		}
		a.centroids = next
	}
	a.compactness = compactness
	log.Debug("attempt finished", "iterations", a.iterations, "compactness", compactness)
	return nil
}

// score returns the compactness of the current labels without relabelling.
func (a *attempt) score() float64 {
	d := make([]float64, a.ps.Len())
	distancesToLabeled(a.ps, a.centroids, a.labels, d)
	var sum float64
	for i, v := range d {
		if a.weights != nil {
			v *= a.weights[i]
		}
		sum += v
	}
	return sum
}

func (a *attempt) notify(compactness float64, changed int) {
	if a.cfg.Observer == nil {
		return
	}
	a.cfg.Observer(Event{
		Attempt:     a.index,
		Iteration:   len(a.trace) - 1,
		Compactness: compactness,
		Changed:     changed,
	})
}
