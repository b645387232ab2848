package core

import "github.com/signalsfoundry/orbit-engine/model"

// DefaultReferencePeriodSeconds is one Earth orbit of wall-clock time in the
// default system.
const DefaultReferencePeriodSeconds = 60.0

// System is a validated set of bodies sharing one reference period.
type System struct {
	ReferencePeriodSeconds float64
	Bodies                 []model.OrbitalBody
}

// DefaultSystem returns the eight planets plus Halley's Comet, with distances
// and periods scaled for display. Periods are in Earth years.
func DefaultSystem() *System {
	return &System{
		ReferencePeriodSeconds: DefaultReferencePeriodSeconds,
		Bodies: []model.OrbitalBody{
			{Name: "Mercury", SemiMajorAxis: 60, Period: 0.24, Orbit: model.Circular(), Color: "#A5A5A5", Radius: 4, Texture: "solid",
				Description: "The smallest planet in the Solar System and the closest to the Sun."},
			{Name: "Venus", SemiMajorAxis: 90, Period: 0.615, Orbit: model.Circular(), Color: "#E3BB76", Radius: 7, Texture: "solid",
				Description: "Second planet from the Sun. It has a thick, toxic atmosphere."},
			{Name: "Earth", SemiMajorAxis: 130, Period: 1.0, Orbit: model.Circular(), Color: "#4F4CB0", Radius: 7.5, Texture: "solid",
				Description: "Our home. The only known planet to harbor life."},
			{Name: "Mars", SemiMajorAxis: 170, Period: 1.88, Orbit: model.Circular(), Color: "#E27B58", Radius: 5, Texture: "solid",
				Description: "The Red Planet. Dusty, cold, desert world with a very thin atmosphere."},
			{Name: "Jupiter", SemiMajorAxis: 240, Period: 11.86, Orbit: model.Circular(), Color: "#C88B3A", Radius: 18, Texture: "banded",
				Description: "The largest planet. A gas giant with a Great Red Spot."},
			{Name: "Saturn", SemiMajorAxis: 310, Period: 29.46, Orbit: model.Circular(), Color: "#C5AB6E", Radius: 16, Texture: "ringed",
				Description: "Adorned with a dazzling, complex system of icy rings."},
			{Name: "Uranus", SemiMajorAxis: 370, Period: 84.01, Orbit: model.Circular(), Color: "#93B8BE", Radius: 12, Texture: "solid",
				Description: "An ice giant. It rotates at a nearly 90-degree angle from the plane of its orbit."},
			{Name: "Neptune", SemiMajorAxis: 430, Period: 164.8, Orbit: model.Circular(), Color: "#4b70dd", Radius: 12, Texture: "solid",
				Description: "The most distant major planet. Dark, cold, and whipped by supersonic winds."},
			// Eccentricity is reduced from the real ~0.97 so the orbit stays in frame.
			{Name: "Halley's Comet", SemiMajorAxis: 300, Period: -75.3, Orbit: model.Elliptical(0.82, 160), Color: "#FFFFFF", Radius: 3, Texture: "solid",
				Description: "A famous short-period comet visible from Earth every 75-76 years."},
		},
	}
}

// Validate checks the reference period and every body.
func (s *System) Validate() error {
	if _, err := NewSolver(s.ReferencePeriodSeconds); err != nil {
		return err
	}
	return model.ValidateBodies(s.Bodies)
}
