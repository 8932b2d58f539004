package chain

import (
	"fmt"
	"math"
)

// Distribution is a probability distribution over the chain's states: a
// non-negative vector of length n summing to 1 within Epsilon. It is also
// used for empirical frequency estimates, which satisfy the same invariant.
type Distribution []float64

// PointMass returns the distribution over n states that puts all mass on
// state i.
func PointMass(n, i int) (Distribution, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidArgument, n)
	}
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: state %d outside [0,%d)", ErrInvalidArgument, i, n)
	}
	d := make(Distribution, n)
	d[i] = 1
	return d, nil
}

// Uniform returns the uniform distribution over n states.
func Uniform(n int) (Distribution, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidArgument, n)
	}
	d := make(Distribution, n)
	p := 1 / float64(n)
	for i := range d {
		d[i] = p
	}
	return d, nil
}

// Sum returns the total mass of the distribution. For a valid Distribution
// this is 1 within Epsilon.
func (d Distribution) Sum() float64 {
	var sum float64
	for _, p := range d {
		sum += p
	}
	return sum
}

// checkDistribution verifies that d is a usable distribution over n states:
// correct length, no negative entries, and total mass 1 within Epsilon.
func checkDistribution(d Distribution, n int) error {
	if len(d) != n {
		return fmt.Errorf("%w: distribution has %d entries, want %d", ErrInvalidArgument, len(d), n)
	}
	for i, p := range d {
		if p < 0 {
			return fmt.Errorf("%w: negative probability %g at state %d", ErrInvalidArgument, p, i)
		}
	}
	if sum := d.Sum(); math.Abs(sum-1) > Epsilon {
		return fmt.Errorf("%w: distribution sums to %g", ErrInvalidArgument, sum)
	}
	return nil
}

// FreeEnergy converts a probability distribution into free-energy-like
// units, dG_i = -kT * ln(p_i). States with zero probability map to +Inf;
// interpreting those is left to the caller. This is a display transform
// for report layers, not part of the chain dynamics.
func FreeEnergy(d Distribution, kT float64) []float64 {
	out := make([]float64, len(d))
	for i, p := range d {
		out[i] = -kT * math.Log(p)
	}
	return out
}
