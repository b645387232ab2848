package api

import (
	"fmt"

	"github.com/signalsfoundry/orbit-engine/model"
	"github.com/signalsfoundry/orbit-engine/timectrl"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used in the Struct payloads of EngineService.
const (
	fieldElapsed      = "elapsed_seconds"
	fieldBodies       = "bodies"
	fieldName         = "name"
	fieldX            = "x"
	fieldY            = "y"
	fieldAngle        = "angle"
	fieldDistance     = "distance"
	fieldPlaying      = "playing"
	fieldSpeed        = "speed"
	fieldSemiMajor    = "semi_major_axis"
	fieldPeriod       = "period"
	fieldOrbitType    = "orbit_type"
	fieldEccentricity = "eccentricity"
	fieldTilt         = "tilt"
)

func positionFields(name string, p model.PositionResult) map[string]any {
	return map[string]any{
		fieldName:     name,
		fieldX:        p.X,
		fieldY:        p.Y,
		fieldAngle:    p.Angle,
		fieldDistance: p.Distance,
	}
}

// FrameToStruct encodes a frame as {elapsed_seconds, bodies: [...]}.
func FrameToStruct(f model.Frame) (*structpb.Struct, error) {
	bodies := make([]any, 0, len(f.Positions))
	for _, p := range f.Positions {
		bodies = append(bodies, positionFields(p.Name, p.Position))
	}
	return structpb.NewStruct(map[string]any{
		fieldElapsed: f.ElapsedSeconds,
		fieldBodies:  bodies,
	})
}

// FrameFromStruct decodes the output of FrameToStruct.
func FrameFromStruct(s *structpb.Struct) (model.Frame, error) {
	fields := s.GetFields()
	if _, ok := fields[fieldElapsed]; !ok {
		return model.Frame{}, fmt.Errorf("%w: frame missing %s", ErrMalformedMessage, fieldElapsed)
	}
	values := fields[fieldBodies].GetListValue().GetValues()
	f := model.Frame{
		ElapsedSeconds: fields[fieldElapsed].GetNumberValue(),
		Positions:      make([]model.BodyPosition, 0, len(values)),
	}
	for _, v := range values {
		name, pos, err := positionFromStruct(v.GetStructValue())
		if err != nil {
			return model.Frame{}, err
		}
		f.Positions = append(f.Positions, model.BodyPosition{Name: name, Position: pos})
	}
	return f, nil
}

func positionFromStruct(s *structpb.Struct) (string, model.PositionResult, error) {
	fields := s.GetFields()
	name := fields[fieldName].GetStringValue()
	if name == "" {
		return "", model.PositionResult{}, fmt.Errorf("%w: position missing %s", ErrMalformedMessage, fieldName)
	}
	return name, model.PositionResult{
		X:        fields[fieldX].GetNumberValue(),
		Y:        fields[fieldY].GetNumberValue(),
		Angle:    fields[fieldAngle].GetNumberValue(),
		Distance: fields[fieldDistance].GetNumberValue(),
	}, nil
}

// ClockToStruct encodes a clock snapshot.
func ClockToStruct(c timectrl.ClockState) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldElapsed: c.ElapsedSeconds,
		fieldPlaying: c.Playing,
		fieldSpeed:   c.Speed,
	})
}

// ClockFromStruct decodes the output of ClockToStruct.
func ClockFromStruct(s *structpb.Struct) timectrl.ClockState {
	fields := s.GetFields()
	return timectrl.ClockState{
		ElapsedSeconds: fields[fieldElapsed].GetNumberValue(),
		Playing:        fields[fieldPlaying].GetBoolValue(),
		Speed:          fields[fieldSpeed].GetNumberValue(),
	}
}

// BodiesToList encodes orbital elements; presentation metadata is omitted.
func BodiesToList(bodies []model.OrbitalBody) (*structpb.ListValue, error) {
	items := make([]any, 0, len(bodies))
	for _, b := range bodies {
		items = append(items, map[string]any{
			fieldName:         b.Name,
			fieldSemiMajor:    b.SemiMajorAxis,
			fieldPeriod:       b.Period,
			fieldOrbitType:    b.Orbit.Type.String(),
			fieldEccentricity: b.Orbit.Eccentricity,
			fieldTilt:         b.Orbit.TiltDegrees,
		})
	}
	return structpb.NewList(items)
}

// BodiesFromList decodes the output of BodiesToList.
func BodiesFromList(l *structpb.ListValue) ([]model.OrbitalBody, error) {
	out := make([]model.OrbitalBody, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		fields := v.GetStructValue().GetFields()
		typ, err := model.ParseOrbitType(fields[fieldOrbitType].GetStringValue())
		if err != nil {
			return nil, err
		}
		kind := model.Circular()
		if typ == model.OrbitElliptical {
			kind = model.Elliptical(fields[fieldEccentricity].GetNumberValue(), fields[fieldTilt].GetNumberValue())
		}
		out = append(out, model.OrbitalBody{
			Name:          fields[fieldName].GetStringValue(),
			SemiMajorAxis: fields[fieldSemiMajor].GetNumberValue(),
			Period:        fields[fieldPeriod].GetNumberValue(),
			Orbit:         kind,
		})
	}
	return out, nil
}

// bodyQuery is the decoded form of a GetBodyPosition request.
type bodyQuery struct {
	Name    string
	Elapsed float64
}

func bodyQueryToStruct(q bodyQuery) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldName:    q.Name,
		fieldElapsed: q.Elapsed,
	})
}

func bodyQueryFromStruct(s *structpb.Struct) (bodyQuery, error) {
	fields := s.GetFields()
	q := bodyQuery{Name: fields[fieldName].GetStringValue()}
	if q.Name == "" {
		return bodyQuery{}, fmt.Errorf("%w: %s is required", ErrMalformedMessage, fieldName)
	}
	elapsed, ok := fields[fieldElapsed].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return bodyQuery{}, fmt.Errorf("%w: %s must be a number", ErrMalformedMessage, fieldElapsed)
	}
	q.Elapsed = elapsed.NumberValue
	return q, nil
}
