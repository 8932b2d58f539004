package chain

import (
	"errors"
	"math"
	"testing"
)

func TestPropagateSingleStep(t *testing.T) {
	m := testMatrix(t)

	// One step from a point mass on state 0 is exactly row 0 of the matrix.
	initial, _ := PointMass(3, 0)
	trace, err := Propagate(m, 1, WithInitial(initial))
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	if len(trace) != 1 {
		t.Fatalf("Propagate(steps=1) returned %d distributions, want 1", len(trace))
	}
	want := []float64{0.6, 0.3, 0.1}
	for j := range want {
		if trace[0][j] != want[j] {
			t.Errorf("trace[0][%d] = %g, want %g", j, trace[0][j], want[j])
		}
	}
}

func TestPropagateDefaultInitial(t *testing.T) {
	m := testMatrix(t)

	// The default initial distribution is a point mass on state 0, so the
	// first step must again be row 0.
	trace, err := Propagate(m, 1)
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	explicit, _ := PointMass(3, 0)
	wantTrace, err := Propagate(m, 1, WithInitial(explicit))
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	for j := range trace[0] {
		if trace[0][j] != wantTrace[0][j] {
			t.Errorf("default initial differs from explicit point mass at %d", j)
		}
	}
}

func TestPropagateStaysNormalized(t *testing.T) {
	m := testMatrix(t)

	trace, err := Propagate(m, 500)
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	if len(trace) != 500 {
		t.Fatalf("Propagate(steps=500) returned %d distributions", len(trace))
	}
	for step, d := range trace {
		if math.Abs(d.Sum()-1) > Epsilon {
			t.Fatalf("distribution at step %d sums to %g", step, d.Sum())
		}
		for j, p := range d {
			if p < 0 {
				t.Fatalf("distribution at step %d has negative entry %g at %d", step, p, j)
			}
		}
	}
}

func TestPropagateConvergesToStationary(t *testing.T) {
	m := testMatrix(t)

	pi, err := Stationary(m)
	if err != nil {
		t.Fatalf("Stationary() failed: %v", err)
	}
	trace, err := Propagate(m, 200)
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}

	final := trace[len(trace)-1]
	const tol = 1e-3
	for j := range pi {
		if math.Abs(final[j]-pi[j]) > tol {
			t.Errorf("after 200 steps, d[%d] = %g, stationary = %g", j, final[j], pi[j])
		}
	}
}

func TestPropagateLeavesInitialUntouched(t *testing.T) {
	m := testMatrix(t)

	// Propagate must treat the caller's initial distribution as read-only;
	// a caller may reuse it across sequential or parallel calls.
	initial := Distribution{1, 0, 0}
	if _, err := Propagate(m, 3, WithInitial(initial)); err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	want := []float64{1, 0, 0}
	for j := range want {
		if initial[j] != want[j] {
			t.Fatalf("caller's initial distribution mutated: got %v, want %v", initial, want)
		}
	}

	// Reusing the same slice must give identical results both times.
	first, err := Propagate(m, 5, WithInitial(initial))
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	second, err := Propagate(m, 5, WithInitial(initial))
	if err != nil {
		t.Fatalf("Propagate() failed on reuse: %v", err)
	}
	for step := range first {
		for j := range first[step] {
			if first[step][j] != second[step][j] {
				t.Fatalf("repeated propagation from the same initial diverges at step %d", step)
			}
		}
	}
}

func TestPropagateInvalidArguments(t *testing.T) {
	m := testMatrix(t)

	if _, err := Propagate(m, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Propagate(steps=0) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := Propagate(m, 3, WithInitial(Distribution{0.5, 0.5})); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Propagate(short initial) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := Propagate(m, 3, WithInitial(Distribution{0.5, 0.7, -0.2})); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Propagate(negative initial) error = %v, want ErrInvalidArgument", err)
	}
}

func BenchmarkPropagate(b *testing.B) {
	m, err := NewTransitionMatrix(testRows())
	if err != nil {
		b.Fatalf("NewTransitionMatrix() failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Propagate(m, 200); err != nil {
			b.Fatalf("Propagate() failed: %v", err)
		}
	}
}
