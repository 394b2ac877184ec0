package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Integer](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Within reports lo <= v && v <= hi. Unlike Clamp the bounds are taken as
// given: an inverted range contains nothing.
func Within[T constraints.Integer](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

func Max[T constraints.Integer](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// DivRound returns a/b rounded half away from zero. b == 0 yields 0.
func DivRound[T constraints.Signed](a, b T) T {
	if b == 0 {
		return 0
	}
	if (a < 0) != (b < 0) {
		return (a - b/2) / b
	}
	return (a + b/2) / b
}
