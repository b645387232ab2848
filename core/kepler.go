package core

import "math"

const (
	// KeplerTolerance is the absolute residual |E - e·sin(E) - M| at which
	// Newton iteration stops.
	KeplerTolerance = 1e-6
	// KeplerMaxIterations caps the per-call cost of the solve. It is a cost
	// bound, not a convergence guarantee: for eccentricities close to 1 the
	// residual may still exceed KeplerTolerance after the cap, and the last
	// iterate is returned as an accepted approximation.
	KeplerMaxIterations = 10
)

// KeplerSolution is the result of solving M = E - e·sin(E).
type KeplerSolution struct {
	// E is the eccentric anomaly in radians.
	E float64
	// Iterations is the number of Newton steps applied.
	Iterations int
	// Residual is |E - e·sin(E) - M| at the returned E.
	Residual float64
	// Converged is false when the iteration cap was hit first.
	Converged bool
}

// SolveKepler solves Kepler's equation for the eccentric anomaly by
// Newton–Raphson, seeded with E0 = M.
func SolveKepler(meanAnomaly, eccentricity float64) KeplerSolution {
	E := meanAnomaly
	for i := 0; ; i++ {
		delta := E - eccentricity*math.Sin(E) - meanAnomaly
		if math.Abs(delta) < KeplerTolerance {
			return KeplerSolution{E: E, Iterations: i, Residual: math.Abs(delta), Converged: true}
		}
		if i == KeplerMaxIterations {
			return KeplerSolution{E: E, Iterations: i, Residual: math.Abs(delta)}
		}
		E -= delta / (1 - eccentricity*math.Cos(E))
	}
}

// TrueAnomaly converts an eccentric anomaly to the true anomaly. The atan2
// half-angle form has no singularity at E = π.
func TrueAnomaly(eccentricAnomaly, eccentricity float64) float64 {
	half := eccentricAnomaly / 2
	return 2 * math.Atan2(
		math.Sqrt(1+eccentricity)*math.Sin(half),
		math.Sqrt(1-eccentricity)*math.Cos(half),
	)
}
