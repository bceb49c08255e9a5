package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"

	_ "image/jpeg"

	"github.com/yyyoichi/hdkmeans"
)

var methods = map[string]hdkmeans.Method{
	"random":   hdkmeans.MethodRandomSample,
	"kmeans":   hdkmeans.MethodKMeans,
	"pp":       hdkmeans.MethodKMeansPP,
	"mspp":     hdkmeans.MethodKMeansMSPP,
	"gauss-pp": hdkmeans.MethodKMeansGaussInvPP,
}

var downsamples = map[string]hdkmeans.Downsample{
	"full":           hdkmeans.DownsampleFull,
	"nearest":        hdkmeans.DownsampleNearest,
	"area":           hdkmeans.DownsampleArea,
	"random":         hdkmeans.DownsampleRandom,
	"dither":         hdkmeans.DownsampleDither,
	"dither-texture": hdkmeans.DownsampleDitherTexture,
	"gradient-max":   hdkmeans.DownsampleGradientMax,
	"resize-nearest": hdkmeans.DownsampleResizeNearest,
	"resize-linear":  hdkmeans.DownsampleResizeLinear,
	"resize-cubic":   hdkmeans.DownsampleResizeCubic,
}

var refinements = map[string]hdkmeans.Refinement{
	"off":      hdkmeans.RefineOff,
	"hist":     hdkmeans.RefineHistogramSmall,
	"hist3d":   hdkmeans.RefineHistogramLarge,
	"boundary": hdkmeans.RefineBoundarySeeking,
	"medoid":   hdkmeans.RefineMedoid,
}

func main() {
	var (
		k          = flag.Int("k", 8, "number of clusters")
		method     = flag.String("method", "pp", "random, kmeans, pp, mspp or gauss-pp")
		rate       = flag.Float64("rate", 0.25, "sample rate in (0, 1]")
		downsample = flag.String("downsample", "nearest", "down-sampling method")
		refinement = flag.String("refine", "off", "off, hist, hist3d, boundary or medoid")
		attempts   = flag.Int("attempts", 3, "clustering attempts")
		iterations = flag.Int("iterations", 20, "maximum iterations per attempt")
		epsilon    = flag.Float64("epsilon", 1e-4, "relative compactness change to stop at")
		seed       = flag.Uint64("seed", 0, "random seed")
		sigma      = flag.Float64("sigma", 30, "gaussian sigma of gauss-pp")
		crop       = flag.Int("crop", 0, "border pixels excluded from sampling")
		align      = flag.Bool("align", false, "trim samples to the SIMD width")
		yuv        = flag.Bool("yuv", false, "cluster in YUV instead of RGB")
		out        = flag.String("out", "", "write the quantized image as PNG")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hdkmeans [flags] image")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	m, ok := methods[*method]
	if !ok {
		log.Fatalf("unknown method %q", *method)
	}
	d, ok := downsamples[*downsample]
	if !ok {
		log.Fatalf("unknown down-sampling %q", *downsample)
	}
	r, ok := refinements[*refinement]
	if !ok {
		log.Fatalf("unknown refinement %q", *refinement)
	}

	img, err := load(flag.Arg(0))
	if err != nil {
		log.Fatalln("Failed to load image:", err)
	}

	opts := []hdkmeans.Option{
		hdkmeans.WithMethod(m),
		hdkmeans.WithSampleRate(*rate),
		hdkmeans.WithDownsample(d),
		hdkmeans.WithRefinement(r),
		hdkmeans.WithAttempts(*attempts),
		hdkmeans.WithCriteria(*iterations, *epsilon),
		hdkmeans.WithSeed(*seed),
		hdkmeans.WithSigma(*sigma),
		hdkmeans.WithCropBoundary(*crop),
		hdkmeans.WithLogger(logger),
	}
	if *align {
		opts = append(opts, hdkmeans.WithAlignToVector())
	}
	if *yuv {
		opts = append(opts, hdkmeans.WithColorSpace(hdkmeans.YUV))
	}
	ic, err := hdkmeans.NewImageClusterer(*k, opts...)
	if err != nil {
		log.Fatalln("Failed to configure:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := ic.ClusterImage(ctx, img)
	if err != nil {
		log.Fatalln("Failed to cluster:", err)
	}

	logger.Info("clustered", "samples", res.Samples, "rate", res.SampleRate, "compactness", res.Compactness)
	counts := make([]int, *k)
	for _, l := range res.Labels {
		counts[l]++
	}
	for c := range *k {
		row := res.Centroids.RawRowView(c)
		fmt.Printf("%d\t%.2f\t%.2f\t%.2f\t%d\n", c, row[0], row[1], row[2], counts[c])
	}

	if *out != "" {
		q, err := res.Quantized()
		if err != nil {
			log.Fatalln("Failed to build image:", err)
		}
		if err := save(*out, q); err != nil {
			log.Fatalln("Failed to write image:", err)
		}
	}
}

func load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func save(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
