// Package numeric provides the pure arithmetic primitives consumed by the
// factorization engine. All functions are stateless and never mutate their
// arguments.
package numeric

import "math/big"

var two = big.NewInt(2)

// GCD returns the greatest common divisor of a and b using the Euclidean
// algorithm. GCD(0, k) = k for any k >= 0; the result is always >= 0.
func GCD(a, b *big.Int) *big.Int {
	x := new(big.Int).Abs(a)
	y := new(big.Int).Abs(b)
	if x.Sign() == 0 {
		return y
	}
	if y.Sign() == 0 {
		return x
	}
	return new(big.Int).GCD(nil, nil, x, y)
}

// ISqrt returns the integer square root of n, the largest r with r*r <= n.
// Panics if n is negative, mirroring big.Int.Sqrt.
func ISqrt(n *big.Int) *big.Int {
	return new(big.Int).Sqrt(n)
}

// TrialDivision scans divisor candidates ascending from 2 through
// min(limit, isqrt(n)) inclusive and returns the first one that divides n
// evenly, or (nil, false) if none does. After 2 only odd candidates are
// tried; an even n is always caught at d = 2, so the result is unchanged.
// Deterministic, O(limit).
func TrialDivision(n *big.Int, limit uint64) (*big.Int, bool) {
	if n == nil || n.Cmp(two) < 0 || limit < 2 {
		return nil, false
	}

	bound := ISqrt(n)
	if lim := new(big.Int).SetUint64(limit); bound.Cmp(lim) > 0 {
		bound = lim
	}
	// bound <= limit here, so it fits in a uint64
	max := bound.Uint64()

	rem := new(big.Int)
	div := new(big.Int)
	for d := uint64(2); d <= max; {
		div.SetUint64(d)
		if rem.Mod(n, div).Sign() == 0 {
			return new(big.Int).SetUint64(d), true
		}
		if d == 2 {
			d = 3
		} else {
			d += 2
		}
	}
	return nil, false
}

// IsEven reports whether n is divisible by 2
func IsEven(n *big.Int) bool {
	return n.Bit(0) == 0
}
