package fixedpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// ErrNonFinite is returned when a NaN or infinite float has to become an integer.
var ErrNonFinite = errors.New("non-finite value")

const (
	// MaxSafeInteger is the largest integer a float64 holds without gaps (2^53-1).
	MaxSafeInteger = 1<<53 - 1

	scaleBits  = 16
	growthBits = 48
)

// ToFloat converts an integer to float64. Values past the safe-integer range
// round to the nearest representable float.
func ToFloat(x *big.Int) float64 {
	if x == nil {
		return 0
	}
	if x.IsInt64() {
		v := x.Int64()
		if v < MaxSafeInteger-1 && v > -(MaxSafeInteger-1) {
			return float64(v)
		}
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}

// FromFloat converts a float64 to the nearest integer. Magnitudes above
// MaxSafeInteger are reduced 16 bits at a time before rounding, so their low
// bits come back as zero.
func FromFloat(x float64) (*big.Int, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("%w: %v", ErrNonFinite, x)
	}

	var shift uint
	for x > MaxSafeInteger {
		x /= 1 << scaleBits
		shift += scaleBits
	}

	out, _ := new(big.Float).SetFloat64(RoundHalfUp(x)).Int(nil)
	return out.Lsh(out, shift), nil
}

// MustFromFloat is FromFloat for values already checked to be finite.
func MustFromFloat(x float64) *big.Int {
	out, err := FromFloat(x)
	if err != nil {
		panic(err)
	}
	return out
}

// TruncateRightBits zeroes the low bits of x, rounding toward zero.
func TruncateRightBits(x *big.Int, bits uint) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	lot := new(big.Int).Lsh(big.NewInt(1), bits)
	out := new(big.Int).Quo(x, lot)
	return out.Mul(out, lot)
}

// FromFixedGrowth decodes a 48-bit fixed point growth accumulator into a multiplier.
func FromFixedGrowth(x *big.Int) float64 {
	return 1 + ToFloat(x)/math.Exp2(growthBits)
}

// ToFixedNumber rounds num to the given number of digits in base.
func ToFixedNumber(num float64, digits int, base float64) float64 {
	if base == 0 {
		base = 10
	}
	mult := math.Pow(base, float64(digits))
	return RoundHalfUp(num*mult) / mult
}

// RoundHalfUp rounds to the nearest integer with ties going toward +Inf.
func RoundHalfUp(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		return f + 1
	}
	return f
}
