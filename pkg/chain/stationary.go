package chain

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Stationary computes the equilibrium distribution pi of the chain: the
// left eigenvector of the transition matrix for eigenvalue 1, normalized to
// sum to 1. It is computed as the right eigenvector of the transpose.
//
// For a reducible or periodic chain, eigenvalue 1 can have multiplicity
// greater than 1; in that case the first matching eigenvalue in the
// solver's output order wins. The solver's ordering is deterministic for a
// fixed matrix, so repeated calls return the same vector, but which
// stationary distribution that is for a non-ergodic chain is not otherwise
// specified.
func Stationary(m *TransitionMatrix) (Distribution, error) {
	n := m.n

	// Build P^T densely; gonum factorizes a general (non-symmetric) matrix.
	pt := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pt.Set(j, i, m.data[i*n+j])
		}
	}

	var eig mat.Eigen
	if ok := eig.Factorize(pt, mat.EigenRight); !ok {
		return nil, fmt.Errorf("%w: eigen factorization failed", ErrNonConvergent)
	}

	values := eig.Values(nil)
	idx := -1
	for i, v := range values {
		if cmplx.Abs(v-1) <= EigenTolerance {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: no eigenvalue within %g of 1", ErrNonConvergent, EigenTolerance)
	}

	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	// The eigenvector is only defined up to a complex scale. Any genuinely
	// complex component cannot belong to a probability vector.
	pi := make(Distribution, n)
	for i := 0; i < n; i++ {
		v := vectors.At(i, idx)
		if math.Abs(imag(v)) > EigenTolerance {
			return nil, fmt.Errorf("%w: eigenvector entry %d has imaginary part %g", ErrNonConvergent, i, imag(v))
		}
		pi[i] = real(v)
	}

	// The solver can hand back the vector with either sign and with tiny
	// negative residues. Flip to a non-negative orientation, clamp, and
	// normalize to unit mass.
	var sum float64
	for _, p := range pi {
		sum += p
	}
	if sum < 0 {
		for i := range pi {
			pi[i] = -pi[i]
		}
		sum = -sum
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: stationary vector has zero mass", ErrNonConvergent)
	}
	for i := range pi {
		if pi[i] < 0 {
			pi[i] = 0
		}
	}
	sum = pi.Sum()
	if sum <= 0 {
		return nil, fmt.Errorf("%w: stationary vector has zero mass after clamping", ErrNonConvergent)
	}
	for i := range pi {
		pi[i] /= sum
	}

	return pi, nil
}
