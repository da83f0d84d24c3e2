package domain

import "math"

// NormalizeRating rounds x to the nearest half star and clamps the result
// into [1, 5]. It is total and idempotent, so it is safe to apply both to a
// freshly submitted rating and to a computed mean; every stored rating goes
// through it, which is what keeps ratings on the half-star grid.
func NormalizeRating(x float64) float64 {
	r := math.Round(x*2) / 2
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}
