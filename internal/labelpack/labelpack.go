// Package labelpack stores a label map at ceil(log2 K) bits per label.
package labelpack

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/yyyoichi/bitstream-go"
)

var (
	ErrLabelRange = errors.New("label outside [0, k)")
	ErrShortData  = errors.New("packed data is shorter than the label count")
)

// Width returns the number of bits one label takes for k clusters.
func Width(k int) int {
	if k <= 1 {
		return 1
	}
	return bits.Len(uint(k - 1))
}

// Pack writes each label most significant bit first.
func Pack(labels []int, k int) ([]uint64, int, error) {
	width := Width(k)
	w := bitstream.NewBitWriter[uint64](0, 0)
	for i, l := range labels {
		if l < 0 || l >= max(k, 1) {
			return nil, 0, fmt.Errorf("%w: label %d at %d, k=%d", ErrLabelRange, l, i, k)
		}
		for b := width - 1; b >= 0; b-- {
			w.WriteBool(l>>b&1 == 1)
		}
	}
	return w.Data(), w.Bits(), nil
}

// Unpack reads n labels packed for k clusters.
func Unpack(data []uint64, n, k int) ([]int, error) {
	width := Width(k)
	r := bitstream.NewBitReader(data, 0, 0)
	r.SetBits(n * width)
	labels := make([]int, n)
	for i := range labels {
		var l int
		for b := range width {
			bit, err := r.ReadBitAt(i*width + b)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrShortData, err)
			}
			l <<= 1
			if bit {
				l |= 1
			}
		}
		labels[i] = l
	}
	return labels, nil
}
