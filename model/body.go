package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfiguration indicates a body definition that cannot be simulated.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidInput indicates a malformed call from the driving loop, such as
	// a negative wall-clock delta.
	ErrInvalidInput = errors.New("invalid input")
)

// OrbitType distinguishes the two supported orbit shapes.
type OrbitType int

const (
	// OrbitCircular is uniform circular motion at radius SemiMajorAxis.
	OrbitCircular OrbitType = iota
	// OrbitElliptical is a two-body Keplerian ellipse with the focus at the origin.
	OrbitElliptical
)

func (t OrbitType) String() string {
	switch t {
	case OrbitCircular:
		return "circular"
	case OrbitElliptical:
		return "elliptical"
	default:
		return fmt.Sprintf("OrbitType(%d)", int(t))
	}
}

// ParseOrbitType maps the configuration spelling onto an OrbitType. An empty
// string means circular.
func ParseOrbitType(s string) (OrbitType, error) {
	switch s {
	case "", "circular":
		return OrbitCircular, nil
	case "elliptical":
		return OrbitElliptical, nil
	default:
		return OrbitCircular, fmt.Errorf("%w: unknown orbit type %q", ErrInvalidConfiguration, s)
	}
}

// OrbitKind carries the shape parameters of an orbit. Eccentricity and
// TiltDegrees are ignored for circular orbits.
type OrbitKind struct {
	Type         OrbitType
	Eccentricity float64 // [0, 1)
	TiltDegrees  float64 // rotation of the major axis in the plane
}

// Circular returns the kind for a circular orbit.
func Circular() OrbitKind { return OrbitKind{Type: OrbitCircular} }

// Elliptical returns the kind for a Keplerian ellipse.
func Elliptical(eccentricity, tiltDegrees float64) OrbitKind {
	return OrbitKind{Type: OrbitElliptical, Eccentricity: eccentricity, TiltDegrees: tiltDegrees}
}

// OrbitalBody is an immutable description of one orbiting body.
type OrbitalBody struct {
	Name string

	// SemiMajorAxis is the orbit radius for circular orbits.
	SemiMajorAxis float64
	// Period is measured in reference-body periods. Negative is retrograde.
	Period float64
	Orbit  OrbitKind

	// Presentation metadata; the solver never reads these.
	Color       string
	Radius      float64
	Description string
	Texture     string
}

// Validate reports whether the body can be simulated. All failures wrap
// ErrInvalidConfiguration.
func (b OrbitalBody) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: body name is required", ErrInvalidConfiguration)
	}
	if !finite(b.SemiMajorAxis) || b.SemiMajorAxis <= 0 {
		return fmt.Errorf("%w: body %q: semi-major axis must be positive, got %v", ErrInvalidConfiguration, b.Name, b.SemiMajorAxis)
	}
	if !finite(b.Period) || b.Period == 0 {
		return fmt.Errorf("%w: body %q: period must be non-zero, got %v", ErrInvalidConfiguration, b.Name, b.Period)
	}
	switch b.Orbit.Type {
	case OrbitCircular:
	case OrbitElliptical:
		e := b.Orbit.Eccentricity
		if !finite(e) || e < 0 || e >= 1 {
			return fmt.Errorf("%w: body %q: eccentricity must be in [0, 1), got %v", ErrInvalidConfiguration, b.Name, e)
		}
		if !finite(b.Orbit.TiltDegrees) {
			return fmt.Errorf("%w: body %q: tilt must be finite", ErrInvalidConfiguration, b.Name)
		}
	default:
		return fmt.Errorf("%w: body %q: unknown orbit type %d", ErrInvalidConfiguration, b.Name, int(b.Orbit.Type))
	}
	return nil
}

// Retrograde reports whether the body travels in the negative angular sense.
func (b OrbitalBody) Retrograde() bool { return b.Period < 0 }

// PositionResult is the instantaneous state of a body in the orbit plane,
// with the focus at the origin.
type PositionResult struct {
	X, Y float64
	// Angle is true anomaly plus tilt, in radians. It is not reduced.
	Angle    float64
	Distance float64
}

// ValidateBodies validates every body and rejects duplicate names.
func ValidateBodies(bodies []OrbitalBody) error {
	seen := make(map[string]struct{}, len(bodies))
	for _, b := range bodies {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("%w: duplicate body name %q", ErrInvalidConfiguration, b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
