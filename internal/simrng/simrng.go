package simrng

import "towerkeep/server/internal/fixed"

// RNG is a Xorshift32 generator. The entire generator state is the single
// uint32 word, which makes it trivially serializable into the checkpoint
// hash: any divergence in draw count between two runtimes shows up as a
// state mismatch on the next checkpoint.
//
// The simulation must never consume randomness from any other source.
type RNG struct {
	state uint32
}

// seedFallback replaces a zero seed, which would lock Xorshift32 at zero
// forever.
const seedFallback uint32 = 0x6d2b79f5

// New returns a generator seeded with the given value.
func New(seed uint32) *RNG {
	if seed == 0 {
		seed = seedFallback
	}
	return &RNG{state: seed}
}

// Restore resumes a generator from a previously captured state word.
func Restore(state uint32) *RNG {
	return New(state)
}

// State returns the current state word for checkpointing.
func (r *RNG) State() uint32 {
	return r.state
}

// Next advances the generator and returns the next 32-bit value.
func (r *RNG) Next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Intn returns a value in [0, n). n <= 0 returns 0 rather than panicking
// so a degenerate call site degrades identically on both runtimes.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() % uint32(n))
}

// Percent draws once and reports whether the draw landed under p percent.
// p <= 0 never passes and p >= 100 always passes, but both still consume
// a draw so the state stream stays aligned across call sites.
func (r *RNG) Percent(p int) bool {
	draw := r.Intn(100)
	if p <= 0 {
		return false
	}
	if p >= 100 {
		return true
	}
	return draw < p
}

// FixedUnit returns a fixed-point value in [0, 1).
func (r *RNG) FixedUnit() fixed.Fixed {
	return fixed.Fixed(r.Next() & 0xffff)
}

// FixedRange returns a fixed-point value in [lo, hi). hi <= lo returns lo.
func (r *RNG) FixedRange(lo, hi fixed.Fixed) fixed.Fixed {
	if hi <= lo {
		return lo
	}
	span := hi - lo
	return lo + fixed.Mul(span, r.FixedUnit())
}
