//go:build amd64

package pointset

import "golang.org/x/sys/cpu"

func init() {
	switch {
	case cpu.X86.HasAVX512F:
		lanes = 16
	case cpu.X86.HasAVX2:
		lanes = 8
	default:
		lanes = 4
	}
}
