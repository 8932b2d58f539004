package chain

import (
	"fmt"
	"math"
)

// propagateOptions holds the configurable parameters for Propagate.
type propagateOptions struct {
	initial Distribution
}

// PropagateOption configures distribution propagation.
type PropagateOption func(*propagateOptions)

// WithInitial sets the distribution at time zero. The default is a point
// mass on state 0.
func WithInitial(d Distribution) PropagateOption {
	return func(o *propagateOptions) {
		o.initial = d
	}
}

// Propagate advances a probability row-vector through the chain for the
// given number of steps and returns every intermediate distribution, one
// per step, so callers can inspect the whole convergence trend. The update
// is d_{t+1} = d_t * P; the computation is deterministic, with no
// randomness involved.
//
// Every returned distribution sums to 1 within Epsilon. Accumulated
// floating drift beyond that tolerance is renormalized away after the step
// that produced it.
func Propagate(m *TransitionMatrix, steps int, opts ...PropagateOption) ([]Distribution, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: steps %d, want >= 1", ErrInvalidArgument, steps)
	}

	options := &propagateOptions{}
	for _, opt := range opts {
		opt(options)
	}

	n := m.n
	var current Distribution
	if options.initial == nil {
		current, _ = PointMass(n, 0)
	} else {
		if err := checkDistribution(options.initial, n); err != nil {
			return nil, fmt.Errorf("initial distribution: %w", err)
		}
		// Work on a copy: current is recycled as a scratch buffer below,
		// and the caller's slice must come back untouched.
		current = make(Distribution, n)
		copy(current, options.initial)
	}

	out := make([]Distribution, steps)
	next := make(Distribution, n)
	for t := 0; t < steps; t++ {
		// next = current * P, skipping zero-mass states.
		for j := range next {
			next[j] = 0
		}
		for i, p := range current {
			if p == 0 {
				continue
			}
			row := m.row(i)
			for j, q := range row {
				next[j] += p * q
			}
		}

		if sum := next.Sum(); math.Abs(sum-1) > Epsilon {
			for j := range next {
				next[j] /= sum
			}
		}

		step := make(Distribution, n)
		copy(step, next)
		out[t] = step
		current, next = step, current
	}

	return out, nil
}
