package core

import (
	"math"
	"testing"
)

func TestSolveKeplerSelfConsistent(t *testing.T) {
	t.Parallel()

	for _, e := range []float64{0, 0.1, 0.3, 0.5, 0.7, 0.82, 0.85} {
		for M := -20.0; M <= 20.0; M += 0.37 {
			sol := SolveKepler(M, e)
			got := sol.E - e*math.Sin(sol.E)
			if math.Abs(got-M) > 1e-4 {
				t.Fatalf("e=%v M=%v: E - e·sin(E) = %v (residual %v, iterations %d)", e, M, got, sol.Residual, sol.Iterations)
			}
			if !sol.Converged {
				t.Fatalf("e=%v M=%v: did not converge, residual %v", e, M, sol.Residual)
			}
			if sol.Iterations > KeplerMaxIterations {
				t.Fatalf("e=%v M=%v: %d iterations exceeds cap", e, M, sol.Iterations)
			}
		}
	}
}

func TestSolveKeplerCircularIsIdentity(t *testing.T) {
	sol := SolveKepler(1.234, 0)
	if sol.E != 1.234 || sol.Iterations != 0 || !sol.Converged {
		t.Fatalf("SolveKepler(1.234, 0) = %+v, want E=M with no iterations", sol)
	}
}

func TestSolveKeplerLargeMeanAnomaly(t *testing.T) {
	// Newton is seeded with E0 = M, so a mean anomaly many revolutions out
	// must still land on the same solution shifted by whole turns.
	const e = 0.5
	base := SolveKepler(0.8, e)
	far := SolveKepler(0.8+200*twoPi, e)
	if !far.Converged {
		t.Fatalf("far solve did not converge: %+v", far)
	}
	if d := far.E - 200*twoPi - base.E; math.Abs(d) > 1e-5 {
		t.Fatalf("far E differs from base by %v after removing whole turns", d)
	}
}

func TestSolveKeplerCapIsAcceptedApproximation(t *testing.T) {
	// Near-parabolic orbits may exhaust the cap; the last iterate is
	// returned rather than an error.
	sol := SolveKepler(0.05, 0.9999)
	if sol.Iterations > KeplerMaxIterations {
		t.Fatalf("iterations %d exceeds cap", sol.Iterations)
	}
	if math.IsNaN(sol.E) || math.IsInf(sol.E, 0) {
		t.Fatalf("E must stay finite, got %v", sol.E)
	}
	if !sol.Converged && sol.Residual < KeplerTolerance {
		t.Fatalf("non-converged solution reports residual %v below tolerance", sol.Residual)
	}
}

func TestTrueAnomalyAtApoapsis(t *testing.T) {
	// tan(E/2) is singular at E = π; the atan2 form must return ±π.
	nu := TrueAnomaly(math.Pi, 0.82)
	if math.Abs(math.Abs(nu)-math.Pi) > 1e-9 {
		t.Fatalf("TrueAnomaly(π) = %v, want ±π", nu)
	}
}
