package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/orbit-engine/model"
)

func TestLoadSystem(t *testing.T) {
	const payload = `{
		"reference_period_seconds": 30,
		"bodies": [
			{"name": "Earth", "semi_major_axis": 130, "period": 1},
			{"name": "Comet", "semi_major_axis": 300, "period": -75.3, "orbit_type": "elliptical", "eccentricity": 0.82, "tilt": 160}
		]
	}`

	sys, err := LoadSystem(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadSystem: %v", err)
	}
	if sys.ReferencePeriodSeconds != 30 {
		t.Fatalf("reference period = %v, want 30", sys.ReferencePeriodSeconds)
	}
	if len(sys.Bodies) != 2 {
		t.Fatalf("got %d bodies, want 2", len(sys.Bodies))
	}
	if sys.Bodies[0].Orbit.Type != model.OrbitCircular {
		t.Fatalf("Earth orbit type = %v, want circular", sys.Bodies[0].Orbit.Type)
	}
	comet := sys.Bodies[1]
	if comet.Orbit != model.Elliptical(0.82, 160) || !comet.Retrograde() {
		t.Fatalf("comet = %+v", comet)
	}
}

func TestLoadSystemDefaultsReferencePeriod(t *testing.T) {
	sys, err := LoadSystem(strings.NewReader(`{"bodies": [{"name": "Earth", "semi_major_axis": 130, "period": 1}]}`))
	if err != nil {
		t.Fatalf("LoadSystem: %v", err)
	}
	if sys.ReferencePeriodSeconds != DefaultReferencePeriodSeconds {
		t.Fatalf("reference period = %v, want default", sys.ReferencePeriodSeconds)
	}
}

func TestLoadSystemRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "zero period", payload: `{"bodies": [{"name": "x", "semi_major_axis": 1, "period": 0}]}`},
		{name: "parabolic", payload: `{"bodies": [{"name": "x", "semi_major_axis": 1, "period": 1, "orbit_type": "elliptical", "eccentricity": 1}]}`},
		{name: "unknown orbit type", payload: `{"bodies": [{"name": "x", "semi_major_axis": 1, "period": 1, "orbit_type": "hyperbolic"}]}`},
		{name: "duplicate name", payload: `{"bodies": [{"name": "x", "semi_major_axis": 1, "period": 1}, {"name": "x", "semi_major_axis": 2, "period": 2}]}`},
		{name: "zero reference period", payload: `{"reference_period_seconds": 0, "bodies": []}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadSystem(strings.NewReader(tc.payload)); !errors.Is(err, model.ErrInvalidConfiguration) {
				t.Fatalf("LoadSystem err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestLoadSystemDecodeError(t *testing.T) {
	_, err := LoadSystem(strings.NewReader(`{"bodies": [`))
	if err == nil || errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("LoadSystem err = %v, want a decode error", err)
	}
}

func TestSystemFileMatchesDefaultCatalog(t *testing.T) {
	fromFile, err := LoadSystemFile("../configs/solar_system.json")
	if err != nil {
		t.Fatalf("LoadSystemFile: %v", err)
	}
	def := DefaultSystem()
	if err := def.Validate(); err != nil {
		t.Fatalf("DefaultSystem invalid: %v", err)
	}
	if len(fromFile.Bodies) != len(def.Bodies) {
		t.Fatalf("file has %d bodies, default has %d", len(fromFile.Bodies), len(def.Bodies))
	}
	for i, b := range def.Bodies {
		got := fromFile.Bodies[i]
		if got.Name != b.Name || got.SemiMajorAxis != b.SemiMajorAxis || got.Period != b.Period || got.Orbit != b.Orbit {
			t.Fatalf("body %d: file %+v, default %+v", i, got, b)
		}
	}

	empty, err := LoadSystemFile("")
	if err != nil || len(empty.Bodies) != len(def.Bodies) {
		t.Fatalf("LoadSystemFile(\"\") = %v, %v; want default system", empty, err)
	}
}
