package pointset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	test := []struct {
		layout Layout
		n, d   int
		want   Layout
	}{
		{Auto, 96, 3, DimensionMajor},
		{Auto, 95, 3, PointMajor},
		{Auto, 10, 64, PointMajor},
		{PointMajor, 100000, 3, PointMajor},
		{DimensionMajor, 2, 64, DimensionMajor},
	}
	for _, tt := range test {
		t.Run(tt.layout.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.layout, tt.n, tt.d))
		})
	}
}

func TestConvert(t *testing.T) {
	pm, err := NewPointMajor(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	require.NoError(t, err)

	dm := pm.Convert(DimensionMajor)
	assert.Equal(t, DimensionMajor, dm.Layout())
	data, stride := dm.Raw()
	assert.Equal(t, 3, stride)
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, data[:6])

	for i := range 3 {
		for j := range 2 {
			assert.Equal(t, pm.At(i, j), dm.At(i, j))
		}
	}
	assert.Equal(t, []float64{5, 6}, dm.Point(2, nil))
	assert.Same(t, dm, dm.Convert(DimensionMajor))

	back := dm.Convert(PointMajor)
	assert.Equal(t, pm.Matrix().RawMatrix().Data, back.Matrix().RawMatrix().Data)
}

func TestShapeErrors(t *testing.T) {
	_, err := NewPointMajor(2, 2, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrBadShape)
	_, err = NewDimensionMajor(0, 2, nil)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = FromPlanes([][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrBadShape)
	_, err = FromPlanes(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestTrim(t *testing.T) {
	data := make([]float64, 2*11)
	for i := range data {
		data[i] = float64(i)
	}
	dm, err := NewDimensionMajor(2, 11, data)
	require.NoError(t, err)

	trimmed := dm.Trim(4)
	assert.Equal(t, 8, trimmed.Len())
	assert.Equal(t, 2, trimmed.Dim())
	assert.Equal(t, []float64{7, 18}, trimmed.Point(7, nil))

	assert.Same(t, dm, dm.Trim(16))
	assert.Same(t, dm, dm.Trim(1))

	pm := dm.Convert(PointMajor).Trim(5)
	assert.Equal(t, 10, pm.Len())
	assert.Equal(t, []float64{9, 20}, pm.Point(9, nil))
}

func TestBounds(t *testing.T) {
	ps, err := FromPlanes([][]float32{{3, -1, 7}, {0, 0, 2}})
	require.NoError(t, err)
	for _, s := range []*Set{ps, ps.Convert(PointMajor)} {
		lo, hi := s.Bounds()
		assert.Equal(t, []float64{-1, 0}, lo)
		assert.Equal(t, []float64{7, 2}, hi)
	}
}

func TestCeilLanes(t *testing.T) {
	l := Lanes()
	assert.GreaterOrEqual(t, l, 1)
	assert.Equal(t, l, CeilLanes(1))
	assert.Equal(t, 2*l, CeilLanes(l+1))
	assert.Equal(t, 0, CeilLanes(0))
}

func TestGather(t *testing.T) {
	ps, err := FromPlanes([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	g := ps.Gather([]int{2, 0})
	assert.Equal(t, []float64{3, 6, 1, 4}, g.RawMatrix().Data)
}
