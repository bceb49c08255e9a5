//go:build arm64

package pointset

import "golang.org/x/sys/cpu"

func init() {
	if cpu.ARM64.HasASIMD {
		lanes = 4
	}
}
