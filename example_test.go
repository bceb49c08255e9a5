package hdkmeans_test

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"slices"

	"github.com/yyyoichi/hdkmeans"
)

func Example_cluster() {
	points, err := hdkmeans.NewPointMajor(6, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		10, 10,
		11, 10,
		10, 11,
	})
	if err != nil {
		fmt.Printf("Error creating points: %v\n", err)
		return
	}

	res, err := hdkmeans.Cluster(context.Background(), points, 2,
		hdkmeans.WithInit(hdkmeans.ProbabilisticPP),
		hdkmeans.WithAttempts(3),
		hdkmeans.WithSeed(1),
	)
	if err != nil {
		fmt.Printf("Error clustering: %v\n", err)
		return
	}

	var rows []string
	for k := range res.K() {
		c := res.Centroids.RawRowView(k)
		rows = append(rows, fmt.Sprintf("%.2f %.2f", c[0], c[1]))
	}
	slices.Sort(rows)
	for _, r := range rows {
		fmt.Println(r)
	}
	fmt.Println(res.Labels[0] == res.Labels[2], res.Labels[0] == res.Labels[3])

	// Output:
	// 0.33 0.33
	// 10.33 10.33
	// true false
}

func Example_image() {
	// Left half red, right half blue.
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := range 10 {
		for x := range 20 {
			if x < 10 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}

	ic, err := hdkmeans.NewImageClusterer(2,
		hdkmeans.WithDownsample(hdkmeans.DownsampleFull),
		hdkmeans.WithSeed(7),
	)
	if err != nil {
		fmt.Printf("Error creating clusterer: %v\n", err)
		return
	}
	res, err := ic.ClusterImage(context.Background(), img)
	if err != nil {
		fmt.Printf("Error clustering image: %v\n", err)
		return
	}
	quantized, err := res.Quantized()
	if err != nil {
		fmt.Printf("Error building image: %v\n", err)
		return
	}
	for _, x := range []int{0, 19} {
		r, g, b, _ := quantized.At(x, 5).RGBA()
		fmt.Println(r>>8, g>>8, b>>8)
	}

	// Output:
	// 255 0 0
	// 0 0 255
}
