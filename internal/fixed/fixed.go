package fixed

import "math"

// Fixed is a Q16.16 fixed-point number: 16 integer bits, 16 fractional
// bits. All simulation arithmetic that can influence a checkpoint hash
// goes through this type so two independent runtimes produce identical
// bit patterns. Intermediate math is 64-bit to avoid overflow, and every
// operation truncates back to int32 at the same moment.
type Fixed int32

const (
	// One is the fixed-point representation of 1.0.
	One Fixed = 1 << Shift
	// Shift is the number of fractional bits.
	Shift = 16
	// Half is the fixed-point representation of 0.5.
	Half Fixed = One / 2

	maxFixed = Fixed(math.MaxInt32)
	minFixed = Fixed(math.MinInt32)
)

// FromInt converts a whole number to fixed point.
func FromInt(v int) Fixed {
	return Fixed(v) << Shift
}

// Int truncates toward zero to a whole number.
func (f Fixed) Int() int {
	return int(f >> Shift)
}

// FromFloat converts a float to fixed point. Only legitimate at the
// config/render boundary; the result must never be fed a float computed
// from simulation state.
func FromFloat(v float64) Fixed {
	return Fixed(int32(v * float64(One)))
}

// Float converts to a float for display. Never feed the result back into
// simulation state.
func (f Fixed) Float() float64 {
	return float64(f) / float64(One)
}

// Mul multiplies two fixed-point values: (a*b)>>16 in 64-bit.
func Mul(a, b Fixed) Fixed {
	return Fixed((int64(a) * int64(b)) >> Shift)
}

// Div divides two fixed-point values: (a<<16)/b in 64-bit. Division by
// zero saturates by the sign of the numerator instead of panicking so a
// degenerate state diverges identically on both runtimes.
func Div(a, b Fixed) Fixed {
	if b == 0 {
		if a >= 0 {
			return maxFixed
		}
		return minFixed
	}
	return Fixed((int64(a) << Shift) / int64(b))
}

// Sqrt computes the fixed-point square root via integer Newton iteration
// on the raw value, then restores Q16.16 scale with a left shift of 8.
func Sqrt(f Fixed) Fixed {
	if f <= 0 {
		return 0
	}
	raw := int64(f)
	x := raw
	y := (x + 1) >> 1
	for y < x {
		x = y
		y = (x + raw/x) >> 1
	}
	return Fixed(int32(x << 8))
}

// DistSq returns the squared distance between two points in 64-bit raw
// units. Callers comparing ranges square the range once and compare
// against this, avoiding Sqrt in hot paths.
func DistSq(ax, ay, bx, by Fixed) int64 {
	dx := int64(ax) - int64(bx)
	dy := int64(ay) - int64(by)
	return dx*dx + dy*dy
}

// RangeSq squares a fixed-point range into the raw unit space used by
// DistSq.
func RangeSq(r Fixed) int64 {
	return int64(r) * int64(r)
}

// Hypot returns the length of (dx, dy) as a fixed-point value, using a
// 64-bit integer Newton square root so no precision is lost squaring
// first. The squared raw delta is value^2 * 2^32, so its integer square
// root is already Q16.16.
func Hypot(dx, dy Fixed) Fixed {
	sq := int64(dx)*int64(dx) + int64(dy)*int64(dy)
	if sq <= 0 {
		return 0
	}
	x := sq
	y := (x + 1) >> 1
	for y < x {
		x = y
		y = (x + sq/x) >> 1
	}
	if x > int64(maxFixed) {
		return maxFixed
	}
	return Fixed(x)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi Fixed) Fixed {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Abs returns the absolute value, saturating at the minimum.
func Abs(f Fixed) Fixed {
	if f == minFixed {
		return maxFixed
	}
	if f < 0 {
		return -f
	}
	return f
}

// Percent scales v by pct/100 without leaving fixed point.
func Percent(v Fixed, pct int) Fixed {
	return Fixed((int64(v) * int64(pct)) / 100)
}

// Lerp interpolates from a to b by t (Q16.16 in [0, One]).
func Lerp(a, b, t Fixed) Fixed {
	return a + Mul(b-a, t)
}
