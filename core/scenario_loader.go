package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/orbit-engine/model"
)

// internal JSON shapes, unexported so the file format can evolve.
type systemJSON struct {
	ReferencePeriodSeconds *float64   `json:"reference_period_seconds"` // optional; defaults to 60
	Bodies                 []bodyJSON `json:"bodies"`
}

type bodyJSON struct {
	Name          string  `json:"name"`
	SemiMajorAxis float64 `json:"semi_major_axis"`
	Period        float64 `json:"period"`
	OrbitType     string  `json:"orbit_type"` // "circular" | "elliptical"
	Eccentricity  float64 `json:"eccentricity"`
	Tilt          float64 `json:"tilt"` // degrees
	Color         string  `json:"color"`
	Radius        float64 `json:"radius"`
	Description   string  `json:"description"`
	TextureType   string  `json:"texture_type"`
}

// LoadSystem decodes a JSON system definition from r and validates it.
// Construction fails on the first invalid body; nothing is defaulted.
func LoadSystem(r io.Reader) (*System, error) {
	var payload systemJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadSystem: decode failed: %w", err)
	}

	sys := &System{
		ReferencePeriodSeconds: DefaultReferencePeriodSeconds,
		Bodies:                 make([]model.OrbitalBody, 0, len(payload.Bodies)),
	}
	if payload.ReferencePeriodSeconds != nil {
		sys.ReferencePeriodSeconds = *payload.ReferencePeriodSeconds
	}

	for _, b := range payload.Bodies {
		typ, err := model.ParseOrbitType(b.OrbitType)
		if err != nil {
			return nil, fmt.Errorf("LoadSystem: body %q: %w", b.Name, err)
		}
		kind := model.Circular()
		if typ == model.OrbitElliptical {
			kind = model.Elliptical(b.Eccentricity, b.Tilt)
		}
		sys.Bodies = append(sys.Bodies, model.OrbitalBody{
			Name:          b.Name,
			SemiMajorAxis: b.SemiMajorAxis,
			Period:        b.Period,
			Orbit:         kind,
			Color:         b.Color,
			Radius:        b.Radius,
			Description:   b.Description,
			Texture:       b.TextureType,
		})
	}

	if err := sys.Validate(); err != nil {
		return nil, fmt.Errorf("LoadSystem: %w", err)
	}
	return sys, nil
}

// LoadSystemFile loads a system from path. An empty path yields DefaultSystem.
func LoadSystemFile(path string) (*System, error) {
	if path == "" {
		return DefaultSystem(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open system %q: %w", path, err)
	}
	defer f.Close()
	return LoadSystem(f)
}
