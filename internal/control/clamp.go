package control

import "golang.org/x/exp/constraints"

// Clamp caps value inside [min, max]. The result is undefined if min > max.
func Clamp[T constraints.Ordered](min, max, value T) T {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}
