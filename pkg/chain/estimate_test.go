package chain

import (
	"errors"
	"math"
	"testing"
)

func TestCountTransitions(t *testing.T) {
	traj := Trajectory{0, 1, 1, 2, 0, 1}
	ct, err := CountTransitions(traj, 3)
	if err != nil {
		t.Fatalf("CountTransitions() failed: %v", err)
	}

	if got := ct.Count(0, 1); got != 2 {
		t.Errorf("Count(0,1) = %d, want 2", got)
	}
	if got := ct.Count(1, 1); got != 1 {
		t.Errorf("Count(1,1) = %d, want 1", got)
	}
	if got := ct.Count(1, 2); got != 1 {
		t.Errorf("Count(1,2) = %d, want 1", got)
	}
	if got := ct.Count(2, 0); got != 1 {
		t.Errorf("Count(2,0) = %d, want 1", got)
	}
	// Five consecutive pairs total; the final state has no outgoing edge.
	if got := ct.Total(); got != len(traj)-1 {
		t.Errorf("Total() = %d, want %d", got, len(traj)-1)
	}
	if got := ct.RowTotal(0); got != 2 {
		t.Errorf("RowTotal(0) = %d, want 2", got)
	}
}

func TestCountTransitionsShortTrajectories(t *testing.T) {
	for _, traj := range []Trajectory{nil, {}, {1}} {
		ct, err := CountTransitions(traj, 3)
		if err != nil {
			t.Fatalf("CountTransitions(%v) failed: %v", traj, err)
		}
		if ct.Total() != 0 {
			t.Errorf("CountTransitions(%v).Total() = %d, want 0", traj, ct.Total())
		}
	}
}

func TestCountTransitionsRejectsBadStates(t *testing.T) {
	if _, err := CountTransitions(Trajectory{0, 3}, 3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("out-of-range state error = %v, want ErrInvalidArgument", err)
	}
	if _, err := CountTransitions(Trajectory{0, 1}, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("numStates=0 error = %v, want ErrInvalidArgument", err)
	}
}

func TestProbabilitiesNaNRows(t *testing.T) {
	// State 2 never has an outgoing transition, so its estimate row is NaN.
	ct, err := CountTransitions(Trajectory{0, 1, 0, 2}, 3)
	if err != nil {
		t.Fatalf("CountTransitions() failed: %v", err)
	}
	te := ct.Probabilities()

	if got := te.Prob(0, 1); got != 0.5 {
		t.Errorf("Prob(0,1) = %g, want 0.5", got)
	}
	if got := te.Prob(0, 2); got != 0.5 {
		t.Errorf("Prob(0,2) = %g, want 0.5", got)
	}
	for j := 0; j < 3; j++ {
		if !math.IsNaN(te.Prob(2, j)) {
			t.Errorf("Prob(2,%d) = %g, want NaN for an unobserved row", j, te.Prob(2, j))
		}
	}
}

func TestEstimateRoundTrip(t *testing.T) {
	m := testMatrix(t)

	traj, err := Sample(m, 100000, testRand(1234))
	if err != nil {
		t.Fatalf("Sample() failed: %v", err)
	}
	ct, err := CountTransitions(traj, m.NumStates())
	if err != nil {
		t.Fatalf("CountTransitions() failed: %v", err)
	}
	te := ct.Probabilities()

	const tol = 0.02
	for i := 0; i < m.NumStates(); i++ {
		for j := 0; j < m.NumStates(); j++ {
			want, _ := m.Prob(i, j)
			got := te.Prob(i, j)
			if math.Abs(got-want) > tol {
				t.Errorf("estimated P(%d,%d) = %g, true %g, tolerance %g", i, j, got, want, tol)
			}
		}
	}
}

func TestCountConditionedShortTrajectories(t *testing.T) {
	for _, traj := range []Trajectory{nil, {0}, {0, 1}} {
		tables, err := CountConditioned(traj, 3)
		if err != nil {
			t.Fatalf("CountConditioned(%v) failed: %v", traj, err)
		}
		if len(tables) != 0 {
			t.Errorf("CountConditioned(%v) produced %d tables, want 0", traj, len(tables))
		}
	}
}

func TestCountConditionedAccumulation(t *testing.T) {
	// Triples: (0,1,2) under history 0, (1,2,1) under 1, (2,1,2) under 2.
	traj := Trajectory{0, 1, 2, 1, 2}
	tables, err := CountConditioned(traj, 3)
	if err != nil {
		t.Fatalf("CountConditioned() failed: %v", err)
	}
	if len(tables) != 3 {
		t.Fatalf("got %d history tables, want 3", len(tables))
	}
	if got := tables[0].Count(1, 2); got != 1 {
		t.Errorf("tables[0].Count(1,2) = %d, want 1", got)
	}
	if got := tables[1].Count(2, 1); got != 1 {
		t.Errorf("tables[1].Count(2,1) = %d, want 1", got)
	}
	if got := tables[2].Count(1, 2); got != 1 {
		t.Errorf("tables[2].Count(1,2) = %d, want 1", got)
	}
}

func TestMarkovPropertyHolds(t *testing.T) {
	// For a trajectory sampled from a true order-1 chain, the estimates
	// conditioned on each lag-2 history must agree with each other and with
	// the unconditioned estimate. This is a statistical property, so the
	// comparison uses a sampling tolerance, not exact equality.
	m := testMatrix(t)

	traj, err := Sample(m, 200000, testRand(99))
	if err != nil {
		t.Fatalf("Sample() failed: %v", err)
	}

	ct, err := CountTransitions(traj, m.NumStates())
	if err != nil {
		t.Fatalf("CountTransitions() failed: %v", err)
	}
	base := ct.Probabilities()

	tables, err := CountConditioned(traj, m.NumStates())
	if err != nil {
		t.Fatalf("CountConditioned() failed: %v", err)
	}
	if len(tables) != m.NumStates() {
		t.Fatalf("observed %d histories, want %d", len(tables), m.NumStates())
	}

	const tol = 0.03
	for k, table := range tables {
		cond := table.Probabilities()
		for i := 0; i < m.NumStates(); i++ {
			for j := 0; j < m.NumStates(); j++ {
				b, c := base.Prob(i, j), cond.Prob(i, j)
				if math.IsNaN(c) {
					// A history/state pair too rare to estimate; with 200k
					// samples of this chain that would itself be a failure.
					t.Errorf("conditioned estimate P(%d,%d | history %d) is NaN", i, j, k)
					continue
				}
				if math.Abs(b-c) > tol {
					t.Errorf("P(%d,%d | history %d) = %g, unconditioned %g, tolerance %g", i, j, k, c, b, tol)
				}
			}
		}
	}
}
