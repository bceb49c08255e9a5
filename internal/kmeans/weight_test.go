package kmeans

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightTable(t *testing.T) {
	table, err := NewWeightTable(30, 255)
	require.NoError(t, err)
	assert.Equal(t, 256, table.Len())

	test := []struct {
		d       float64
		gauss   float64
		inverse float64
	}{
		{0, 1, 1 / 1.01},
		{30.7, math.Exp(-0.5), 1 / (math.Exp(-0.5) + 0.01)},
		{400, math.Exp(-400.0 * 400 / 1800), 1 / (math.Exp(-400.0*400/1800) + 0.01)},
	}
	for _, tt := range test {
		assert.InDelta(t, tt.gauss, table.Gauss(tt.d), 1e-15)
		assert.InDelta(t, tt.inverse, table.InverseGauss(tt.d), 1e-12)
	}
	assert.LessOrEqual(t, table.InverseGauss(1000), 100.0)

	_, err = NewWeightTable(-1, 255)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewWeightTable(1, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestWeightTableReplacedOnChange(t *testing.T) {
	e, err := NewEngine(Config{})
	require.NoError(t, err)
	old := e.Table()
	assert.Equal(t, DefaultSigma, old.Sigma())

	require.NoError(t, e.SetSigma(10))
	require.NoError(t, e.SetSignalMax(1023))
	cur := e.Table()
	assert.NotSame(t, old, cur)
	assert.Equal(t, 10.0, cur.Sigma())
	assert.Equal(t, 1024, cur.Len())
	// The previous table is left as it was for runs still holding it.
	assert.Equal(t, DefaultSigma, old.Sigma())
	assert.Equal(t, 256, old.Len())
}
