package chain

import (
	"fmt"
	"math/rand/v2"
)

// Trajectory is a realized, ordered sequence of visited state indices.
type Trajectory []int

// sampleOptions holds the configurable parameters for Sample.
type sampleOptions struct {
	start     int
	startDist Distribution
}

// SampleOption configures trajectory sampling. Options are applied in
// order, so a later start option overrides an earlier one.
type SampleOption func(*sampleOptions)

// WithStart fixes the first state of the trajectory. The default, when no
// start option is given, is state 0; that is a documented convention chosen
// for determinism, not a property of the chain.
func WithStart(state int) SampleOption {
	return func(o *sampleOptions) {
		o.start = state
		o.startDist = nil
	}
}

// WithStartDistribution draws the first state of the trajectory from d
// instead of using a fixed start state.
func WithStartDistribution(d Distribution) SampleOption {
	return func(o *sampleOptions) {
		o.startDist = d
	}
}

// Sample draws a random state trajectory of length exactly steps from the
// chain described by m. The first element is the start state (or is drawn
// from the start distribution); each following element is drawn from the
// transition row of its predecessor. All randomness comes from rng, so a
// seeded source makes the result exactly reproducible.
func Sample(m *TransitionMatrix, steps int, rng *rand.Rand, opts ...SampleOption) (Trajectory, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: steps %d, want >= 1", ErrInvalidArgument, steps)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil randomness source", ErrInvalidArgument)
	}

	options := &sampleOptions{start: 0}
	for _, opt := range opts {
		opt(options)
	}

	var current int
	if options.startDist != nil {
		if err := checkDistribution(options.startDist, m.n); err != nil {
			return nil, fmt.Errorf("start distribution: %w", err)
		}
		current = drawCategorical(options.startDist, rng)
	} else {
		if options.start < 0 || options.start >= m.n {
			return nil, fmt.Errorf("%w: start state %d outside [0,%d)", ErrInvalidArgument, options.start, m.n)
		}
		current = options.start
	}

	traj := make(Trajectory, steps)
	traj[0] = current
	for t := 1; t < steps; t++ {
		current = drawCategorical(m.row(current), rng)
		traj[t] = current
	}

	return traj, nil
}

// drawCategorical samples an index from the given weights by walking the
// cumulative sum with a single uniform draw. Floating residue can leave a
// sliver of probability past the last entry; it is assigned to the last
// positive-weight state visited, so for the validated rows this package
// feeds in (total weight 1) the draw always lands inside [0, n).
func drawCategorical(weights []float64, rng *rand.Rand) int {
	u := rng.Float64()
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		u -= w
		if u < 0 {
			return i
		}
	}
	return last
}
