package chain

import (
	"fmt"
	"math"
)

// CountTable is an n-by-n table of transition counts: entry (i, j) is the
// number of times state i was immediately followed by state j in the
// trajectory the table was built from. Tables are derived data, rebuilt
// from a trajectory on every call and never mutated in place afterwards.
type CountTable struct {
	n    int
	data []int // flat row-major
}

// newCountTable allocates an empty n-by-n table.
func newCountTable(n int) *CountTable {
	return &CountTable{n: n, data: make([]int, n*n)}
}

// NumStates returns the number of states n the table was built over.
func (ct *CountTable) NumStates() int {
	return ct.n
}

// Count returns the number of observed i -> j transitions. Out-of-range
// indices count as zero.
func (ct *CountTable) Count(i, j int) int {
	if i < 0 || i >= ct.n || j < 0 || j >= ct.n {
		return 0
	}
	return ct.data[i*ct.n+j]
}

// RowTotal returns the total number of outgoing transitions observed from
// state i.
func (ct *CountTable) RowTotal(i int) int {
	if i < 0 || i >= ct.n {
		return 0
	}
	var total int
	for _, c := range ct.data[i*ct.n : (i+1)*ct.n] {
		total += c
	}
	return total
}

// Total returns the total number of transitions in the table.
func (ct *CountTable) Total() int {
	var total int
	for _, c := range ct.data {
		total += c
	}
	return total
}

// Add accumulates a single observed i -> j transition. States outside
// [0, n) are rejected so tables stay consistent with their dimensions.
func (ct *CountTable) Add(i, j int) error {
	return ct.AddN(i, j, 1)
}

// AddN accumulates count observed i -> j transitions at once. It exists so
// that callers rebuilding a table from pre-aggregated data (for example a
// persisted count store) do not pay one call per observation. A negative
// count is rejected.
func (ct *CountTable) AddN(i, j, count int) error {
	if i < 0 || i >= ct.n || j < 0 || j >= ct.n {
		return fmt.Errorf("%w: state pair (%d,%d) outside [0,%d)", ErrInvalidArgument, i, j, ct.n)
	}
	if count < 0 {
		return fmt.Errorf("%w: negative count %d for (%d,%d)", ErrInvalidArgument, count, i, j)
	}
	ct.data[i*ct.n+j] += count
	return nil
}

// TransitionEstimate is a row-normalized CountTable: an empirical estimate
// of the transition probabilities. Rows with no observed transitions are
// all-NaN; interpreting those is left to the caller.
type TransitionEstimate struct {
	n    int
	data []float64
}

// NumStates returns the number of states n.
func (te *TransitionEstimate) NumStates() int {
	return te.n
}

// Prob returns the estimated probability of an i -> j transition, or NaN
// when state i was never observed with an outgoing transition.
func (te *TransitionEstimate) Prob(i, j int) float64 {
	if i < 0 || i >= te.n || j < 0 || j >= te.n {
		return math.NaN()
	}
	return te.data[i*te.n+j]
}

// Row returns a copy of row i of the estimate. For observed rows this is a
// Distribution; for unobserved rows every entry is NaN.
func (te *TransitionEstimate) Row(i int) Distribution {
	if i < 0 || i >= te.n {
		return nil
	}
	row := make(Distribution, te.n)
	copy(row, te.data[i*te.n:(i+1)*te.n])
	return row
}

// Probabilities row-normalizes the count table into an empirical
// transition-probability estimate.
func (ct *CountTable) Probabilities() *TransitionEstimate {
	te := &TransitionEstimate{n: ct.n, data: make([]float64, ct.n*ct.n)}
	for i := 0; i < ct.n; i++ {
		total := ct.RowTotal(i)
		for j := 0; j < ct.n; j++ {
			if total == 0 {
				te.data[i*ct.n+j] = math.NaN()
			} else {
				te.data[i*ct.n+j] = float64(ct.data[i*ct.n+j]) / float64(total)
			}
		}
	}
	return te
}

// CountTransitions folds the consecutive pairs of a trajectory into a
// first-order transition count table over numStates states. The final
// element contributes no outgoing transition, and there is no wraparound.
// A trajectory shorter than 2 yields an empty table, not an error; a state
// outside [0, numStates) is an error.
func CountTransitions(traj Trajectory, numStates int) (*CountTable, error) {
	if numStates < 1 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidArgument, numStates)
	}
	ct := newCountTable(numStates)
	for t := 0; t+1 < len(traj); t++ {
		if err := ct.Add(traj[t], traj[t+1]); err != nil {
			return nil, fmt.Errorf("transition at step %d: %w", t, err)
		}
	}
	return ct, nil
}

// CountConditioned folds the consecutive triples of a trajectory into
// per-history count tables: for each (s_{t-2}=k, s_{t-1}=i, s_t=j) the
// table keyed by k accumulates the (i, j) pair. Comparing the
// row-normalized tables across k values is the Markov-property check: for
// a genuinely order-1 source they converge to the same matrix as the
// unconditioned estimate as the trajectory grows.
//
// Only histories observed at least once appear in the result. A trajectory
// shorter than 3 yields an empty map, not an error.
func CountConditioned(traj Trajectory, numStates int) (map[int]*CountTable, error) {
	if numStates < 1 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidArgument, numStates)
	}
	tables := make(map[int]*CountTable)
	for t := 0; t+2 < len(traj); t++ {
		k := traj[t]
		if k < 0 || k >= numStates {
			return nil, fmt.Errorf("%w: state %d at step %d outside [0,%d)", ErrInvalidArgument, k, t, numStates)
		}
		ct, ok := tables[k]
		if !ok {
			ct = newCountTable(numStates)
			tables[k] = ct
		}
		if err := ct.Add(traj[t+1], traj[t+2]); err != nil {
			return nil, fmt.Errorf("transition at step %d: %w", t+1, err)
		}
	}
	return tables, nil
}
