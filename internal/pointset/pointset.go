// Package pointset holds N points of D dimensions in one of two physical
// layouts. Both layouts are backed by a gonum dense matrix: point-major
// stores one point per row, dimension-major stores one dimension per row.
package pointset

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmpty    = errors.New("point set is empty")
	ErrBadShape = errors.New("data length does not match shape")
)

type Layout int

const (
	Auto Layout = iota
	PointMajor
	DimensionMajor
)

func (l Layout) String() string {
	switch l {
	case Auto:
		return "auto"
	case PointMajor:
		return "point-major"
	case DimensionMajor:
		return "dimension-major"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// AutoThreshold is the points-per-dimension ratio above which Auto picks
// DimensionMajor.
const AutoThreshold = 32

// Resolve returns the concrete layout for n points of d dimensions.
func Resolve(l Layout, n, d int) Layout {
	if l != Auto {
		return l
	}
	if n >= d*AutoThreshold {
		return DimensionMajor
	}
	return PointMajor
}

type Set struct {
	layout Layout
	n, d   int
	m      *mat.Dense
}

// NewPointMajor wraps data as n rows of d values. The slice is not copied.
func NewPointMajor(n, d int, data []float64) (*Set, error) {
	if n <= 0 || d <= 0 {
		return nil, ErrEmpty
	}
	if len(data) != n*d {
		return nil, fmt.Errorf("%w: got %d values for %dx%d", ErrBadShape, len(data), n, d)
	}
	return &Set{layout: PointMajor, n: n, d: d, m: mat.NewDense(n, d, data)}, nil
}

// NewDimensionMajor wraps data as d rows of n values. The slice is not copied.
func NewDimensionMajor(d, n int, data []float64) (*Set, error) {
	if n <= 0 || d <= 0 {
		return nil, ErrEmpty
	}
	if len(data) != n*d {
		return nil, fmt.Errorf("%w: got %d values for %dx%d", ErrBadShape, len(data), d, n)
	}
	return &Set{layout: DimensionMajor, n: n, d: d, m: mat.NewDense(d, n, data)}, nil
}

// FromPlanes builds a dimension-major set from channel planes of equal length.
func FromPlanes(planes [][]float32) (*Set, error) {
	if len(planes) == 0 || len(planes[0]) == 0 {
		return nil, ErrEmpty
	}
	d, n := len(planes), len(planes[0])
	data := make([]float64, d*n)
	for j, p := range planes {
		if len(p) != n {
			return nil, fmt.Errorf("%w: plane %d has %d values, want %d", ErrBadShape, j, len(p), n)
		}
		row := data[j*n : (j+1)*n]
		for i, v := range p {
			row[i] = float64(v)
		}
	}
	return &Set{layout: DimensionMajor, n: n, d: d, m: mat.NewDense(d, n, data)}, nil
}

func (s *Set) Len() int       { return s.n }
func (s *Set) Dim() int       { return s.d }
func (s *Set) Layout() Layout { return s.layout }

// Matrix returns the backing matrix in the set's own orientation.
func (s *Set) Matrix() *mat.Dense { return s.m }

// Raw returns the backing slice and its row stride.
func (s *Set) Raw() ([]float64, int) {
	raw := s.m.RawMatrix()
	return raw.Data, raw.Stride
}

// At returns dimension j of point i.
func (s *Set) At(i, j int) float64 {
	if s.layout == PointMajor {
		return s.m.At(i, j)
	}
	return s.m.At(j, i)
}

// Point copies point i into dst, growing it when needed.
func (s *Set) Point(i int, dst []float64) []float64 {
	if cap(dst) < s.d {
		dst = make([]float64, s.d)
	}
	dst = dst[:s.d]
	if s.layout == PointMajor {
		copy(dst, s.m.RawRowView(i))
		return dst
	}
	data, stride := s.Raw()
	for j := range dst {
		dst[j] = data[j*stride+i]
	}
	return dst
}

// Convert returns the set in layout l. Auto is resolved first. The receiver
// is returned when no change is needed.
func (s *Set) Convert(l Layout) *Set {
	l = Resolve(l, s.n, s.d)
	if l == s.layout {
		return s
	}
	var m mat.Dense
	m.CloneFrom(s.m.T())
	return &Set{layout: l, n: s.n, d: s.d, m: &m}
}

// Trim drops trailing points so the count is a multiple of m. Sets smaller
// than m are returned unchanged.
func (s *Set) Trim(m int) *Set {
	if m <= 1 || s.n < m || s.n%m == 0 {
		return s
	}
	n := s.n - s.n%m
	var v mat.Matrix
	if s.layout == PointMajor {
		v = s.m.Slice(0, n, 0, s.d)
	} else {
		v = s.m.Slice(0, s.d, 0, n)
	}
	return &Set{layout: s.layout, n: n, d: s.d, m: v.(*mat.Dense)}
}

// Bounds returns the per-dimension minimum and maximum.
func (s *Set) Bounds() (lo, hi []float64) {
	lo = make([]float64, s.d)
	hi = make([]float64, s.d)
	if s.layout == DimensionMajor {
		for j := range s.d {
			row := s.m.RawRowView(j)
			lo[j], hi[j] = floats.Min(row), floats.Max(row)
		}
		return lo, hi
	}
	for j := range s.d {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for i := range s.n {
		row := s.m.RawRowView(i)
		for j, v := range row {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}
	return lo, hi
}

// Gather returns a point-major copy of the points at idx.
func (s *Set) Gather(idx []int) *mat.Dense {
	out := mat.NewDense(len(idx), s.d, nil)
	buf := make([]float64, s.d)
	for r, i := range idx {
		out.SetRow(r, s.Point(i, buf))
	}
	return out
}
