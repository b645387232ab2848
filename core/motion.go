package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/orbit-engine/model"
)

const twoPi = 2 * math.Pi

// KeplerObserver is notified of every elliptical solve. Implementations must
// be safe for concurrent use when the engine evaluates bodies in parallel.
type KeplerObserver interface {
	ObserveKeplerSolve(body string, sol KeplerSolution)
}

// Solver computes body positions from orbital elements and elapsed time.
// It holds configuration only and is safe for concurrent use.
type Solver struct {
	referencePeriod float64
	reduce          bool
	observer        KeplerObserver
}

// SolverOption customises Solver construction.
type SolverOption func(*Solver)

// WithLiteralMeanAnomaly seeds Newton's method with the unreduced mean
// anomaly n·t, which loses precision once n·t grows large.
func WithLiteralMeanAnomaly() SolverOption {
	return func(s *Solver) {
		s.reduce = false
	}
}

// WithKeplerObserver attaches an observer for Kepler solve statistics.
func WithKeplerObserver(o KeplerObserver) SolverOption {
	return func(s *Solver) {
		s.observer = o
	}
}

// NewSolver returns a solver for bodies whose periods are expressed in
// multiples of referencePeriodSeconds.
func NewSolver(referencePeriodSeconds float64, opts ...SolverOption) (*Solver, error) {
	if math.IsNaN(referencePeriodSeconds) || math.IsInf(referencePeriodSeconds, 0) || referencePeriodSeconds <= 0 {
		return nil, fmt.Errorf("%w: reference period must be positive, got %v", model.ErrInvalidConfiguration, referencePeriodSeconds)
	}
	s := &Solver{
		referencePeriod: referencePeriodSeconds,
		reduce:          true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ReferencePeriodSeconds returns the duration of one reference-body orbit.
func (s *Solver) ReferencePeriodSeconds() float64 { return s.referencePeriod }

// PeriodSeconds returns |period| scaled to simulated seconds.
func (s *Solver) PeriodSeconds(body model.OrbitalBody) float64 {
	return math.Abs(body.Period) * s.referencePeriod
}

// MeanMotion returns the signed angular rate in rad per simulated second.
// It is negative for retrograde bodies.
func (s *Solver) MeanMotion(body model.OrbitalBody) float64 {
	return math.Copysign(twoPi/s.PeriodSeconds(body), body.Period)
}

// Position returns the body's state at elapsed simulated seconds. The body
// is assumed to have passed Validate.
func (s *Solver) Position(body model.OrbitalBody, elapsed float64) model.PositionResult {
	n := s.MeanMotion(body)

	// phase is the argument fed to sin/cos. With reduction it is taken from
	// elapsed mod period, which is exact, before scaling by n.
	phase := n * elapsed
	if s.reduce {
		phase = n * math.Mod(elapsed, s.PeriodSeconds(body))
	}

	if body.Orbit.Type != model.OrbitElliptical {
		a := body.SemiMajorAxis
		return model.PositionResult{
			X:        a * math.Cos(phase),
			Y:        a * math.Sin(phase),
			Angle:    n * elapsed,
			Distance: a,
		}
	}

	e := body.Orbit.Eccentricity
	sol := SolveKepler(phase, e)
	if s.observer != nil {
		s.observer.ObserveKeplerSolve(body.Name, sol)
	}

	nu := TrueAnomaly(sol.E, e)
	r := body.SemiMajorAxis * (1 - e*math.Cos(sol.E))
	tilt := body.Orbit.TiltDegrees * math.Pi / 180

	x, y := rotate(r*math.Cos(nu), r*math.Sin(nu), tilt)
	return model.PositionResult{
		X:        x,
		Y:        y,
		Angle:    nu + tilt,
		Distance: r,
	}
}

// Position is a one-shot query with the default (reduced) solver settings.
// It panics if referencePeriodSeconds is not positive.
func Position(body model.OrbitalBody, elapsed, referencePeriodSeconds float64) model.PositionResult {
	s, err := NewSolver(referencePeriodSeconds)
	if err != nil {
		panic(err)
	}
	return s.Position(body, elapsed)
}

// MotionModel yields a single body's position for a given elapsed time.
type MotionModel interface {
	Position(elapsed float64) model.PositionResult
}

// CircularMotionModel moves a body uniformly around a circle.
type CircularMotionModel struct {
	body   model.OrbitalBody
	solver *Solver
}

// Position implements MotionModel.
func (m *CircularMotionModel) Position(elapsed float64) model.PositionResult {
	return m.solver.Position(m.body, elapsed)
}

// KeplerMotionModel moves a body along a tilted Keplerian ellipse.
type KeplerMotionModel struct {
	body   model.OrbitalBody
	solver *Solver
}

// Position implements MotionModel.
func (m *KeplerMotionModel) Position(elapsed float64) model.PositionResult {
	return m.solver.Position(m.body, elapsed)
}

// Path samples the full orbit outline.
func (m *KeplerMotionModel) Path(samples int) []Point {
	return OrbitPath(m.body, samples)
}

// NewMotionModel chooses the motion model matching the body's orbit kind.
func NewMotionModel(s *Solver, body model.OrbitalBody) MotionModel {
	if body.Orbit.Type == model.OrbitElliptical {
		return &KeplerMotionModel{body: body, solver: s}
	}
	return &CircularMotionModel{body: body, solver: s}
}

// Point is a position in the orbit plane.
type Point struct {
	X, Y float64
}

// OrbitPath returns samples points evenly spaced in eccentric anomaly around
// the body's orbit, with the focus at the origin. The path is closed: the
// last point is not repeated. Fewer than 3 samples yields nil.
func OrbitPath(body model.OrbitalBody, samples int) []Point {
	if samples < 3 {
		return nil
	}
	a := body.SemiMajorAxis
	var e, tilt float64
	if body.Orbit.Type == model.OrbitElliptical {
		e = body.Orbit.Eccentricity
		tilt = body.Orbit.TiltDegrees * math.Pi / 180
	}
	b := a * math.Sqrt(1-e*e)

	pts := make([]Point, samples)
	for i := range pts {
		E := twoPi * float64(i) / float64(samples)
		x, y := rotate(a*(math.Cos(E)-e), b*math.Sin(E), tilt)
		pts[i] = Point{X: x, Y: y}
	}
	return pts
}

func rotate(x, y, theta float64) (float64, float64) {
	sin, cos := math.Sincos(theta)
	return x*cos - y*sin, x*sin + y*cos
}
