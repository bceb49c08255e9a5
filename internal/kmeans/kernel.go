package kmeans

import (
	"github.com/yyyoichi/hdkmeans/internal/pointset"
	"gonum.org/v1/gonum/mat"
)

// Squared distances are always summed in dimension order 0..D-1 so both
// layouts produce bit-identical values. The explicit float64 conversion
// keeps the compiler from fusing the multiply into the add.

// distancesTo writes the squared distance of every point to c into out.
func distancesTo(ps *pointset.Set, c []float64, out []float64) {
	data, stride := ps.Raw()
	n, d := ps.Len(), ps.Dim()
	if ps.Layout() == pointset.PointMajor {
		for i := range n {
			row := data[i*stride : i*stride+d]
			var sum float64
			for j, v := range row {
				diff := v - c[j]
				sum += float64(diff * diff)
			}
			out[i] = sum
		}
		return
	}
	out = out[:n]
	clear(out)
	for j := range d {
		row := data[j*stride : j*stride+n]
		cj := c[j]
		for i, v := range row {
			diff := v - cj
			out[i] += float64(diff * diff)
		}
	}
}

// distancesToLabeled writes the squared distance of every point to the
// centroid its label points at.
func distancesToLabeled(ps *pointset.Set, centroids *mat.Dense, labels []int, out []float64) {
	data, stride := ps.Raw()
	n, d := ps.Len(), ps.Dim()
	craw := centroids.RawMatrix()
	if ps.Layout() == pointset.PointMajor {
		for i := range n {
			row := data[i*stride : i*stride+d]
			c := craw.Data[labels[i]*craw.Stride:]
			var sum float64
			for j, v := range row {
				diff := v - c[j]
				sum += float64(diff * diff)
			}
			out[i] = sum
		}
		return
	}
	out = out[:n]
	clear(out)
	for j := range d {
		row := data[j*stride : j*stride+n]
		for i, v := range row {
			diff := v - craw.Data[labels[i]*craw.Stride+j]
			out[i] += float64(diff * diff)
		}
	}
}
