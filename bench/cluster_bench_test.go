package bench_test

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/yyyoichi/hdkmeans"
)

// BenchmarkImage_FHD runs the image pipeline over an FHD gradient per method and down-sampling.
func BenchmarkImage_FHD(b *testing.B) {
	test := []struct {
		name string
		opts []hdkmeans.Option
	}{
		{name: "PP_Nearest", opts: []hdkmeans.Option{
			hdkmeans.WithMethod(hdkmeans.MethodKMeansPP),
			hdkmeans.WithDownsample(hdkmeans.DownsampleNearest),
		}},
		{name: "PP_Area", opts: []hdkmeans.Option{
			hdkmeans.WithMethod(hdkmeans.MethodKMeansPP),
			hdkmeans.WithDownsample(hdkmeans.DownsampleArea),
		}},
		{name: "PP_Dither", opts: []hdkmeans.Option{
			hdkmeans.WithMethod(hdkmeans.MethodKMeansPP),
			hdkmeans.WithDownsample(hdkmeans.DownsampleDither),
		}},
		{name: "MSPP_Nearest", opts: []hdkmeans.Option{
			hdkmeans.WithMethod(hdkmeans.MethodKMeansMSPP),
			hdkmeans.WithDownsample(hdkmeans.DownsampleNearest),
		}},
		{name: "GaussInvPP_Nearest", opts: []hdkmeans.Option{
			hdkmeans.WithMethod(hdkmeans.MethodKMeansGaussInvPP),
			hdkmeans.WithDownsample(hdkmeans.DownsampleNearest),
		}},
		{name: "PP_ResizeLinear", opts: []hdkmeans.Option{
			hdkmeans.WithMethod(hdkmeans.MethodKMeansPP),
			hdkmeans.WithDownsample(hdkmeans.DownsampleResizeLinear),
		}},
		{name: "PP_Nearest_Medoid", opts: []hdkmeans.Option{
			hdkmeans.WithMethod(hdkmeans.MethodKMeansPP),
			hdkmeans.WithDownsample(hdkmeans.DownsampleNearest),
			hdkmeans.WithRefinement(hdkmeans.RefineMedoid),
		}},
	}

	img := createImage(1920, 1080)
	ctx := b.Context()

	for _, tt := range test {
		b.Run(tt.name, func(b *testing.B) {
			opts := append([]hdkmeans.Option{hdkmeans.WithSampleRate(0.1), hdkmeans.WithSeed(1)}, tt.opts...)
			ic, err := hdkmeans.NewImageClusterer(16, opts...)
			if err != nil {
				b.Fatalf("Failed to create ImageClusterer (%s): %v", tt.name, err)
			}
			for b.Loop() {
				if _, err := ic.ClusterImage(ctx, img); err != nil {
					b.Fatalf("ClusterImage failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkCluster compares layouts for low and high dimensional point sets.
func BenchmarkCluster(b *testing.B) {
	test := []struct {
		name   string
		n, d   int
		layout hdkmeans.Layout
	}{
		{name: "N100k_D3_PointMajor", n: 100_000, d: 3, layout: hdkmeans.PointMajor},
		{name: "N100k_D3_DimensionMajor", n: 100_000, d: 3, layout: hdkmeans.DimensionMajor},
		{name: "N20k_D64_PointMajor", n: 20_000, d: 64, layout: hdkmeans.PointMajor},
		{name: "N20k_D64_DimensionMajor", n: 20_000, d: 64, layout: hdkmeans.DimensionMajor},
	}
	ctx := b.Context()

	for _, tt := range test {
		b.Run(tt.name, func(b *testing.B) {
			ps := createPoints(b, tt.n, tt.d).Convert(tt.layout)
			km, err := hdkmeans.New(
				hdkmeans.WithInit(hdkmeans.ProbabilisticPP),
				hdkmeans.WithCriteria(10, 0),
				hdkmeans.WithSeed(1),
			)
			if err != nil {
				b.Fatal(err)
			}
			defer km.Close()
			for b.Loop() {
				if _, err := km.Cluster(ctx, ps, 16); err != nil {
					b.Fatalf("Cluster failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkAssign measures one nearest-centroid pass.
func BenchmarkAssign(b *testing.B) {
	ctx := b.Context()
	ps := createPoints(b, 200_000, 3)
	res, err := hdkmeans.Cluster(ctx, ps, 32, hdkmeans.WithSeed(1), hdkmeans.WithCriteria(2, 0))
	if err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		if _, _, err := hdkmeans.Assign(ps, res.Centroids); err != nil {
			b.Fatal(err)
		}
	}
}

func createImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			b := uint8(((x + y) * 255) / (width + height))
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return img
}

func createPoints(b *testing.B, n, d int) *hdkmeans.PointSet {
	b.Helper()
	rng := rand.New(rand.NewPCG(42, 0))
	data := make([]float64, n*d)
	for i := range data {
		data[i] = rng.Float64() * 255
	}
	ps, err := hdkmeans.NewPointMajor(n, d, data)
	if err != nil {
		b.Fatal(err)
	}
	return ps
}
