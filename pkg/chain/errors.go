package chain

import "errors"

var (
	// ErrInvalidMatrix is returned by NewTransitionMatrix when the input is
	// not a valid row-stochastic matrix: empty, non-square, containing a
	// negative entry, or with a row sum deviating from 1 by more than Epsilon.
	// It is raised at construction time and never surfaces later.
	ErrInvalidMatrix = errors.New("chain: invalid transition matrix")

	// ErrInvalidArgument is returned when a caller-supplied argument is
	// unusable: a step count below 1, a state index outside [0, n), a
	// distribution whose length does not match the matrix, or a nil
	// randomness source.
	ErrInvalidArgument = errors.New("chain: invalid argument")

	// ErrNonConvergent is returned by Stationary when the eigen-solve does
	// not locate an eigenvalue within tolerance of 1, or when the matching
	// eigenvector has an imaginary component too large to discard. This
	// should not occur for a valid row-stochastic matrix.
	ErrNonConvergent = errors.New("chain: stationary solve did not converge")
)

const (
	// Epsilon is the floating tolerance used for row-sum and distribution
	// validation throughout the package.
	Epsilon = 1e-9

	// EigenTolerance is the looser tolerance used when matching eigenvalues
	// against 1 and when discarding imaginary residues of the stationary
	// eigenvector. Eigensolvers are iterative, so this is wider than Epsilon.
	EigenTolerance = 1e-8
)
