package core

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/signalsfoundry/orbit-engine/model"
)

const eps = 1e-9

func earthBody() model.OrbitalBody {
	return model.OrbitalBody{Name: "Earth", SemiMajorAxis: 130, Period: 1.0, Orbit: model.Circular()}
}

func halleyBody() model.OrbitalBody {
	return model.OrbitalBody{Name: "Halley's Comet", SemiMajorAxis: 300, Period: -75.3, Orbit: model.Elliptical(0.82, 160)}
}

func mustSolver(t *testing.T, opts ...SolverOption) *Solver {
	t.Helper()
	s, err := NewSolver(60, opts...)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	return s
}

func TestNewSolverRejectsReferencePeriod(t *testing.T) {
	for _, ref := range []float64{0, -60, math.NaN(), math.Inf(1)} {
		if _, err := NewSolver(ref); !errors.Is(err, model.ErrInvalidConfiguration) {
			t.Fatalf("NewSolver(%v) err = %v, want ErrInvalidConfiguration", ref, err)
		}
	}
}

func TestCircularQuarterPeriod(t *testing.T) {
	got := mustSolver(t).Position(earthBody(), 15)

	if math.Abs(got.Angle-math.Pi/2) > eps {
		t.Fatalf("angle = %v, want π/2", got.Angle)
	}
	if math.Abs(got.X) > eps || math.Abs(got.Y-130) > eps {
		t.Fatalf("position = (%v, %v), want (0, 130)", got.X, got.Y)
	}
	if got.Distance != 130 {
		t.Fatalf("distance = %v, want 130", got.Distance)
	}
}

func TestCircularDistanceConstantAndPeriodic(t *testing.T) {
	s := mustSolver(t)
	body := model.OrbitalBody{Name: "Mars", SemiMajorAxis: 170, Period: 1.88}
	P := s.PeriodSeconds(body)

	for _, ts := range []float64{0, 0.3, 7.3, 59.9, 1234.5, 1e6} {
		a := s.Position(body, ts)
		b := s.Position(body, ts+P)
		if a.Distance != 170 || b.Distance != 170 {
			t.Fatalf("t=%v: distance %v / %v, want 170", ts, a.Distance, b.Distance)
		}
		if math.Abs(a.X-b.X) > 1e-6 || math.Abs(a.Y-b.Y) > 1e-6 {
			t.Fatalf("t=%v: position not periodic: (%v,%v) vs (%v,%v)", ts, a.X, a.Y, b.X, b.Y)
		}
		if d := b.Angle - a.Angle; math.Abs(d-twoPi) > 1e-6 {
			t.Fatalf("t=%v: angle advanced by %v over one period, want 2π", ts, d)
		}
	}
}

func TestCircularAngleIsUnbounded(t *testing.T) {
	got := mustSolver(t).Position(earthBody(), 600)
	if math.Abs(got.Angle-10*twoPi) > 1e-9 {
		t.Fatalf("angle after ten orbits = %v, want 20π", got.Angle)
	}
}

func TestEllipticalAtPeriapsis(t *testing.T) {
	got := mustSolver(t).Position(halleyBody(), 0)

	if math.Abs(got.Distance-54) > eps {
		t.Fatalf("distance = %v, want a(1-e) = 54", got.Distance)
	}
	tilt := 160 * math.Pi / 180
	wantX, wantY := 54*math.Cos(tilt), 54*math.Sin(tilt)
	if math.Abs(got.X-wantX) > eps || math.Abs(got.Y-wantY) > eps {
		t.Fatalf("position = (%v, %v), want (%v, %v)", got.X, got.Y, wantX, wantY)
	}
	if math.Abs(got.Angle-tilt) > eps {
		t.Fatalf("angle = %v, want tilt %v", got.Angle, tilt)
	}
}

func TestEllipticalDistanceBounds(t *testing.T) {
	s := mustSolver(t)
	for _, e := range []float64{0, 0.2, 0.5, 0.82} {
		for _, period := range []float64{2.5, -3} {
			body := model.OrbitalBody{Name: "b", SemiMajorAxis: 200, Period: period, Orbit: model.Elliptical(e, 45)}
			P := s.PeriodSeconds(body)
			lo, hi := 200*(1-e)-1e-6, 200*(1+e)+1e-6
			for i := 0; i <= 400; i++ {
				ts := P * float64(i) / 100
				got := s.Position(body, ts)
				if got.Distance < lo || got.Distance > hi {
					t.Fatalf("e=%v t=%v: distance %v outside [%v, %v]", e, ts, got.Distance, lo, hi)
				}
				if r := math.Hypot(got.X, got.Y); math.Abs(r-got.Distance) > 1e-6 {
					t.Fatalf("e=%v t=%v: |(x,y)| = %v, distance = %v", e, ts, r, got.Distance)
				}
			}
		}
	}
}

func TestZeroEccentricityMatchesCircle(t *testing.T) {
	s := mustSolver(t)
	circle := model.OrbitalBody{Name: "c", SemiMajorAxis: 90, Period: 0.615}
	ellipse := model.OrbitalBody{Name: "e", SemiMajorAxis: 90, Period: 0.615, Orbit: model.Elliptical(0, 0)}

	for _, ts := range []float64{0, 3, 17.2, 36} {
		c, e := s.Position(circle, ts), s.Position(ellipse, ts)
		if math.Abs(c.X-e.X) > 1e-9 || math.Abs(c.Y-e.Y) > 1e-9 || math.Abs(e.Distance-90) > 1e-9 {
			t.Fatalf("t=%v: circle %+v vs e=0 ellipse %+v", ts, c, e)
		}
	}
}

func TestRetrogradeAngleDecreases(t *testing.T) {
	s := mustSolver(t)
	tests := []struct {
		name string
		body model.OrbitalBody
	}{
		{name: "circular prograde", body: model.OrbitalBody{Name: "p", SemiMajorAxis: 1, Period: 2}},
		{name: "circular retrograde", body: model.OrbitalBody{Name: "r", SemiMajorAxis: 1, Period: -2}},
		{name: "elliptical prograde", body: model.OrbitalBody{Name: "ep", SemiMajorAxis: 300, Period: 75.3, Orbit: model.Elliptical(0.82, 160)}},
		{name: "elliptical retrograde", body: halleyBody()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			P := s.PeriodSeconds(tc.body)
			prev := s.Position(tc.body, 0).Angle
			for i := 1; i < 500; i++ {
				cur := s.Position(tc.body, P*float64(i)/500).Angle
				if tc.body.Retrograde() && cur >= prev {
					t.Fatalf("step %d: retrograde angle %v did not decrease from %v", i, cur, prev)
				}
				if !tc.body.Retrograde() && cur <= prev {
					t.Fatalf("step %d: prograde angle %v did not increase from %v", i, cur, prev)
				}
				prev = cur
			}
		})
	}
}

func TestMeanMotionCarriesSign(t *testing.T) {
	s := mustSolver(t)
	if n := s.MeanMotion(halleyBody()); n >= 0 {
		t.Fatalf("retrograde mean motion = %v, want negative", n)
	}
	if n := s.MeanMotion(earthBody()); math.Abs(n-twoPi/60) > eps {
		t.Fatalf("Earth mean motion = %v, want 2π/60", n)
	}
}

// Both modes agree within the first period; far out only the reduced mode is
// expected to land exactly back on periapsis.
func TestMeanAnomalyReductionModes(t *testing.T) {
	reduced := mustSolver(t)
	literal := mustSolver(t, WithLiteralMeanAnomaly())
	body := halleyBody()

	for _, ts := range []float64{0, 100, 2259, 4000} {
		r, l := reduced.Position(body, ts), literal.Position(body, ts)
		if math.Abs(r.X-l.X) > 1e-6 || math.Abs(r.Y-l.Y) > 1e-6 {
			t.Fatalf("t=%v: reduced %+v vs literal %+v", ts, r, l)
		}
	}

	P := reduced.PeriodSeconds(body)
	far := P * math.Exp2(40) // exact multiple of the period
	start := reduced.Position(body, 0)
	got := reduced.Position(body, far)
	if math.Abs(got.X-start.X) > 1e-6 || math.Abs(got.Y-start.Y) > 1e-6 {
		t.Fatalf("reduced solver drifted after 2^40 periods: %+v vs %+v", got, start)
	}

	// The literal seed may drift here; only the orbit-shape invariant holds.
	lit := literal.Position(body, far)
	if lit.Distance < 54-1e-6 || lit.Distance > 546+1e-6 {
		t.Fatalf("literal distance %v outside orbit bounds", lit.Distance)
	}
}

func TestPositionFreeFunction(t *testing.T) {
	got := Position(earthBody(), 30, 60)
	if math.Abs(got.X+130) > eps || math.Abs(got.Y) > eps {
		t.Fatalf("half-period position = (%v, %v), want (-130, 0)", got.X, got.Y)
	}
}

type countingObserver struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingObserver) ObserveKeplerSolve(body string, sol KeplerSolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[body]++
}

func TestKeplerObserverSeesEllipticalOnly(t *testing.T) {
	obs := &countingObserver{}
	s := mustSolver(t, WithKeplerObserver(obs))

	s.Position(earthBody(), 10)
	s.Position(halleyBody(), 10)
	s.Position(halleyBody(), 20)

	if obs.calls["Earth"] != 0 || obs.calls["Halley's Comet"] != 2 {
		t.Fatalf("observer calls = %v", obs.calls)
	}
}

func TestNewMotionModelChoosesByKind(t *testing.T) {
	s := mustSolver(t)
	if _, ok := NewMotionModel(s, earthBody()).(*CircularMotionModel); !ok {
		t.Fatal("expected CircularMotionModel for circular body")
	}
	m, ok := NewMotionModel(s, halleyBody()).(*KeplerMotionModel)
	if !ok {
		t.Fatal("expected KeplerMotionModel for elliptical body")
	}
	if got, want := m.Position(123), s.Position(halleyBody(), 123); got != want {
		t.Fatalf("model position %+v != solver position %+v", got, want)
	}
}

func TestOrbitPath(t *testing.T) {
	if OrbitPath(earthBody(), 2) != nil {
		t.Fatal("expected nil path for fewer than 3 samples")
	}

	body := halleyBody()
	pts := OrbitPath(body, 72)
	if len(pts) != 72 {
		t.Fatalf("got %d points, want 72", len(pts))
	}
	peri := mustSolver(t).Position(body, 0)
	if math.Abs(pts[0].X-peri.X) > eps || math.Abs(pts[0].Y-peri.Y) > eps {
		t.Fatalf("first path point %+v, want periapsis (%v, %v)", pts[0], peri.X, peri.Y)
	}
	for i, p := range pts {
		r := math.Hypot(p.X, p.Y)
		if r < 54-1e-6 || r > 546+1e-6 {
			t.Fatalf("point %d at radius %v outside orbit bounds", i, r)
		}
	}

	for _, p := range OrbitPath(earthBody(), 16) {
		if r := math.Hypot(p.X, p.Y); math.Abs(r-130) > 1e-9 {
			t.Fatalf("circular path radius %v, want 130", r)
		}
	}
}
