package kmeans

import (
	"fmt"
	"math"
)

// inverseFloor bounds the inverse Gaussian weight at 1/inverseFloor.
const inverseFloor = 0.01

// WeightTable caches Gaussian and inverse Gaussian weights over integer
// distances 0..ceil(signalMax). A table is never modified after it is built;
// changing sigma or signalMax builds a new one.
type WeightTable struct {
	sigma     float64
	signalMax float64
	gauss     []float64
	inverse   []float64
}

func NewWeightTable(sigma, signalMax float64) (*WeightTable, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("%w: sigma %v", ErrInvalidParameter, sigma)
	}
	if !(signalMax > 0) || math.IsInf(signalMax, 0) {
		return nil, fmt.Errorf("%w: signal max %v", ErrInvalidParameter, signalMax)
	}
	size := int(math.Ceil(signalMax)) + 1
	t := &WeightTable{
		sigma:     sigma,
		signalMax: signalMax,
		gauss:     make([]float64, size),
		inverse:   make([]float64, size),
	}
	for i := range size {
		g := gaussian(float64(i), sigma)
		t.gauss[i] = g
		t.inverse[i] = 1 / (g + inverseFloor)
	}
	return t, nil
}

func gaussian(d, sigma float64) float64 {
	return math.Exp(-d * d / (2 * sigma * sigma))
}

func (t *WeightTable) Sigma() float64     { return t.sigma }
func (t *WeightTable) SignalMax() float64 { return t.signalMax }
func (t *WeightTable) Len() int           { return len(t.gauss) }

// Gauss returns exp(-d²/2σ²) for the distance d truncated to an integer.
func (t *WeightTable) Gauss(d float64) float64 {
	i := int(d)
	if i < len(t.gauss) {
		return t.gauss[i]
	}
	return gaussian(float64(i), t.sigma)
}

// InverseGauss returns 1/(Gauss(d)+0.01).
func (t *WeightTable) InverseGauss(d float64) float64 {
	i := int(d)
	if i < len(t.inverse) {
		return t.inverse[i]
	}
	return 1 / (gaussian(float64(i), t.sigma) + inverseFloor)
}
