package chain

import (
	"fmt"
	"math"
)

// TransitionMatrix wraps a validated row-stochastic square matrix. Entry
// (i, j) is the probability of moving from state i to state j in one step.
// A TransitionMatrix is immutable after construction; all accessors are
// read-only and Row returns a fresh copy.
type TransitionMatrix struct {
	n      int
	data   []float64 // flat row-major, length n*n
	labels []string  // optional display labels, nil or length n
}

// MatrixOption configures optional properties of a TransitionMatrix at
// construction time.
type MatrixOption func(*TransitionMatrix)

// WithLabels attaches display labels to the states. The label slice must
// have exactly one entry per state; NewTransitionMatrix fails otherwise.
func WithLabels(labels []string) MatrixOption {
	return func(m *TransitionMatrix) {
		m.labels = labels
	}
}

// NewTransitionMatrix validates rows and constructs an immutable
// TransitionMatrix. The input must be a non-empty square matrix with no
// negative entries whose rows each sum to 1 within Epsilon. The input
// slices are copied, so the caller may reuse them afterwards.
func NewTransitionMatrix(rows [][]float64, opts ...MatrixOption) (*TransitionMatrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidMatrix)
	}

	m := &TransitionMatrix{
		n:    n,
		data: make([]float64, n*n),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.labels != nil && len(m.labels) != n {
		return nil, fmt.Errorf("%w: got %d labels for %d states", ErrInvalidMatrix, len(m.labels), n)
	}

	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), n)
		}
		var sum float64
		for j, p := range row {
			if p < 0 {
				return nil, fmt.Errorf("%w: negative entry %g at (%d,%d)", ErrInvalidMatrix, p, i, j)
			}
			sum += p
		}
		if math.Abs(sum-1) > Epsilon {
			return nil, fmt.Errorf("%w: row %d sums to %g", ErrInvalidMatrix, i, sum)
		}
		copy(m.data[i*n:(i+1)*n], row)
	}

	// Labels are copied too so later mutation of the caller's slice cannot
	// leak into the matrix.
	if m.labels != nil {
		labels := make([]string, n)
		copy(labels, m.labels)
		m.labels = labels
	}

	return m, nil
}

// NumStates returns the number of states n.
func (m *TransitionMatrix) NumStates() int {
	return m.n
}

// Prob returns the transition probability P(next = j | current = i).
// Out-of-range indices return an error rather than panicking so that
// callers driving indices from external data get a diagnosable failure.
func (m *TransitionMatrix) Prob(i, j int) (float64, error) {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		return 0, fmt.Errorf("%w: state pair (%d,%d) outside [0,%d)", ErrInvalidArgument, i, j, m.n)
	}
	return m.data[i*m.n+j], nil
}

// Row returns a copy of row i as a Distribution.
func (m *TransitionMatrix) Row(i int) (Distribution, error) {
	if i < 0 || i >= m.n {
		return nil, fmt.Errorf("%w: state %d outside [0,%d)", ErrInvalidArgument, i, m.n)
	}
	row := make(Distribution, m.n)
	copy(row, m.data[i*m.n:(i+1)*m.n])
	return row, nil
}

// Label returns the display label for state i. If no labels were attached,
// it falls back to the decimal state index.
func (m *TransitionMatrix) Label(i int) string {
	if m.labels == nil || i < 0 || i >= m.n {
		return fmt.Sprintf("%d", i)
	}
	return m.labels[i]
}

// Labels returns a copy of the attached labels, or nil when none were set.
func (m *TransitionMatrix) Labels() []string {
	if m.labels == nil {
		return nil
	}
	labels := make([]string, m.n)
	copy(labels, m.labels)
	return labels
}

// row gives kernels in this package direct read access to the backing
// storage of row i without a copy. Callers must not retain or mutate it.
func (m *TransitionMatrix) row(i int) []float64 {
	return m.data[i*m.n : (i+1)*m.n]
}
