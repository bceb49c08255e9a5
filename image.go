package hdkmeans

import (
	"context"
	"fmt"
	"image"

	"github.com/yyyoichi/hdkmeans/internal/clustering"
	"github.com/yyyoichi/hdkmeans/internal/labelpack"
	"github.com/yyyoichi/hdkmeans/internal/refine"
	"github.com/yyyoichi/hdkmeans/internal/sampling"
	"github.com/yyyoichi/hdkmeans/internal/yuv"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidPlanes = clustering.ErrInvalidPlanes
	ErrNoQuantizer   = clustering.ErrNoQuantizer
	ErrNotAnImage    = fmt.Errorf("%w: quantized output needs three channels", ErrInvalidPlanes)
)

type (
	Method     = clustering.Method
	Downsample = sampling.Method
	Refinement = refine.Method
	ColorSpace = yuv.ColorSpace
	// Quantizer produces the starting labels of MethodKMeansQuantizer.
	Quantizer = clustering.Quantizer
)

const (
	MethodRandomSample     = clustering.RandomSample
	MethodKMeans           = clustering.KMeans
	MethodKMeansPP         = clustering.KMeansPP
	MethodKMeansMSPP       = clustering.KMeansMSPP
	MethodKMeansGaussInvPP = clustering.KMeansGaussInvPP
	MethodKMeansQuantizer  = clustering.KMeansQuantizer
)

const (
	DownsampleFull          = sampling.Full
	DownsampleNearest       = sampling.Nearest
	DownsampleArea          = sampling.Area
	DownsampleRandom        = sampling.Random
	DownsampleDither        = sampling.Dither
	DownsampleDitherTexture = sampling.DitherTexture
	DownsampleGradientMax   = sampling.GradientMax
	DownsampleResizeNearest = sampling.ResizeNearest
	DownsampleResizeLinear  = sampling.ResizeLinear
	DownsampleResizeCubic   = sampling.ResizeCubic
)

const (
	RefineOff             = refine.Off
	RefineHistogramSmall  = refine.HistogramSmall
	RefineHistogramLarge  = refine.HistogramLarge
	RefineBoundarySeeking = refine.BoundarySeeking
	RefineMedoid          = refine.Medoid
)

const (
	RGB = yuv.RGB
	YUV = yuv.YUV
)

// WithMethod selects the clustering method of an ImageClusterer. The
// default is MethodKMeansPP.
func WithMethod(m Method) Option {
	return func(s *settings) error {
		s.image.Method = m
		return nil
	}
}

// WithSampleRate clusters about rate·area pixels. The rate is raised when it
// would leave fewer samples than clusters rounded up to the SIMD width.
func WithSampleRate(rate float64) Option {
	return func(s *settings) error {
		if !(rate > 0) || rate > 1 {
			return fmt.Errorf("%w: sample rate %v", ErrInvalidParameter, rate)
		}
		s.image.SampleRate = rate
		return nil
	}
}

func WithDownsample(m Downsample) Option {
	return func(s *settings) error {
		s.image.Downsample = m
		return nil
	}
}

// WithAlignToVector trims the samples to a multiple of the SIMD lane width.
func WithAlignToVector() Option {
	return func(s *settings) error {
		s.image.AlignToVector = true
		return nil
	}
}

// WithCropBoundary ignores border pixels while sampling and refining.
func WithCropBoundary(pixels int) Option {
	return func(s *settings) error {
		if pixels < 0 {
			return fmt.Errorf("%w: crop %d", ErrInvalidParameter, pixels)
		}
		s.image.CropBoundary = pixels
		return nil
	}
}

func WithRefinement(r Refinement) Option {
	return func(s *settings) error {
		s.image.Refine = r
		return nil
	}
}

// WithColorSpace selects the planes ClusterImage builds. The default is RGB.
func WithColorSpace(c ColorSpace) Option {
	return func(s *settings) error {
		s.space = c
		return nil
	}
}

func WithQuantizer(q Quantizer) Option {
	return func(s *settings) error {
		s.image.Quantizer = q
		return nil
	}
}

// ImageClusterer clusters the pixels of images or channel planes.
type ImageClusterer struct {
	c     *clustering.Clusterer
	space yuv.ColorSpace
}

// NewImageClusterer initializes an image clusterer for k clusters.
// WithWeightMap is rejected since the number of samples is not known up front.
func NewImageClusterer(k int, opts ...Option) (*ImageClusterer, error) {
	s := settings{image: clustering.Config{Method: clustering.KMeansPP, Downsample: sampling.Nearest}}
	if err := s.apply(opts...); err != nil {
		return nil, err
	}
	if s.weights != nil {
		return nil, fmt.Errorf("%w: weight map needs a point set, not an image", ErrInvalidParameter)
	}
	s.image.K = k
	c, err := clustering.New(s.image)
	if err != nil {
		return nil, err
	}
	return &ImageClusterer{c: c, space: s.space}, nil
}

// ClusterImage clusters the pixels of img.
//
// Process:
//  1. Converts the image to RGB or YUV planes.
//  2. Crops the boundary and down-samples the planes.
//  3. Clusters the samples.
//  4. Refines the centroids against the full-resolution pixels.
//  5. Labels every pixel with its nearest centroid.
func (ic *ImageClusterer) ClusterImage(ctx context.Context, img image.Image) (*ImageResult, error) {
	r, err := ic.c.ClusterImage(ctx, img, ic.space)
	if err != nil {
		return nil, err
	}
	return newImageResult(r), nil
}

// ClusterPlanes clusters row-major channel planes of the given width.
func (ic *ImageClusterer) ClusterPlanes(ctx context.Context, planes [][]float32, width int) (*ImageResult, error) {
	r, err := ic.c.ClusterPlanes(ctx, planes, width)
	if err != nil {
		return nil, err
	}
	return newImageResult(r), nil
}

type ImageResult struct {
	Centroids     *mat.Dense
	Labels        []int
	Width, Height int
	Compactness   float64
	Samples       int
	SampleRate    float64

	r *clustering.Result
}

func newImageResult(r *clustering.Result) *ImageResult {
	return &ImageResult{
		Centroids:   r.Centroids,
		Labels:      r.Labels,
		Width:       r.Width,
		Height:      r.Height,
		Compactness: r.Compactness,
		Samples:     r.Samples,
		SampleRate:  r.SampleRate,
		r:           r,
	}
}

// Planes returns one plane per channel with every pixel set to its centroid.
func (r *ImageResult) Planes() [][]float32 { return r.r.Planes().Channels }

// Quantized returns the image with every pixel replaced by its centroid.
func (r *ImageResult) Quantized() (image.Image, error) {
	if _, d := r.Centroids.Dims(); d != 3 {
		return nil, ErrNotAnImage
	}
	return r.r.Planes().Image(), nil
}

// PackLabels returns the label map packed at ceil(log2 K) bits per pixel.
func (r *ImageResult) PackLabels() ([]uint64, int, error) {
	k, _ := r.Centroids.Dims()
	return labelpack.Pack(r.Labels, k)
}
