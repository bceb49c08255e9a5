package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"gonum.org/v1/gonum/mat"
)

func line(t *testing.T, values ...float64) *pointset.Set {
	t.Helper()
	ps, err := pointset.NewDimensionMajor(1, len(values), values)
	require.NoError(t, err)
	return ps
}

func TestRefine(t *testing.T) {
	test := []struct {
		name      string
		method    Method
		points    []float64
		labels    []int
		centroids []float64
		want      []float64
	}{
		{
			name:      "off",
			method:    Off,
			points:    []float64{0, 10},
			labels:    []int{0, 1},
			centroids: []float64{1, 9},
			want:      []float64{1, 9},
		},
		{
			name:      "histogram small favours the rare distance",
			method:    HistogramSmall,
			points:    []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 10},
			labels:    []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			centroids: []float64{1},
			want:      []float64{7290.0 / 738},
		},
		{
			name:      "histogram large favours the rare color",
			method:    HistogramLarge,
			points:    []float64{0, 0, 0, 100},
			labels:    []int{0, 0, 0, 0},
			centroids: []float64{25},
			want:      []float64{50},
		},
		{
			name:      "boundary seeking",
			method:    BoundarySeeking,
			points:    []float64{-10, 5, 20, 100},
			labels:    []int{0, 0, 0, 1},
			centroids: []float64{0, 100},
			want:      []float64{5, 100},
		},
		{
			name:      "medoid ties go to the first member",
			method:    Medoid,
			points:    []float64{0, 1, 2, 10},
			labels:    []int{0, 0, 0, 0},
			centroids: []float64{3},
			want:      []float64{1},
		},
		{
			name:      "empty cluster keeps its centroid",
			method:    Medoid,
			points:    []float64{4, 6},
			labels:    []int{0, 0},
			centroids: []float64{5, 42},
			want:      []float64{4, 42},
		},
	}
	for _, tt := range test {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.method, 255)
			c := mat.NewDense(len(tt.centroids), 1, tt.centroids)
			got, err := r.Refine(line(t, tt.points...), tt.labels, c)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got.RawMatrix().Data, 1e-9)
		})
	}
}

func TestMedoidMultiDim(t *testing.T) {
	ps, err := pointset.NewPointMajor(5, 2, []float64{
		0, 0,
		1, 1,
		2, 0,
		1, 0,
		9, 9,
	})
	require.NoError(t, err)
	got, err := New(Medoid, 255).Refine(ps, []int{0, 0, 0, 0, 0}, mat.NewDense(1, 2, nil))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, got.RawRowView(0))
}

func TestRefinerReuse(t *testing.T) {
	r := New(HistogramSmall, 255)
	big := line(t, 0, 0, 0, 10, 20, 30, 40, 50)
	_, err := r.Refine(big, []int{0, 0, 0, 0, 1, 1, 1, 1}, mat.NewDense(2, 1, []float64{0, 40}))
	require.NoError(t, err)

	got, err := r.Refine(line(t, 0, 0, 0, 0, 0, 0, 0, 0, 0, 10), make([]int, 10), mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 7290.0/738, got.At(0, 0), 1e-9)
}

func TestRefineErrors(t *testing.T) {
	ps, err := pointset.NewPointMajor(1, 4, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	_, err = New(HistogramLarge, 255).Refine(ps, []int{0}, mat.NewDense(1, 4, nil))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = New(Medoid, 255).Refine(ps, []int{0}, mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrUnsupported)
}
