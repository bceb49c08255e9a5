package pointset

// lanes is the number of float32 values one vector register holds on the
// running CPU. It is set by the per-architecture init functions.
var lanes = 1

// Lanes returns the SIMD vector width in float32 lanes.
func Lanes() int { return lanes }

// CeilLanes rounds v up to a multiple of the lane width.
func CeilLanes(v int) int {
	return (v + lanes - 1) / lanes * lanes
}
