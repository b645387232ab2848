package model

// BodyPosition pairs a body name with its computed position.
type BodyPosition struct {
	Name     string
	Position PositionResult
}

// Frame is the set of body positions computed for one elapsed time.
type Frame struct {
	ElapsedSeconds float64
	Positions      []BodyPosition
}

// Lookup returns the position recorded for name.
func (f Frame) Lookup(name string) (PositionResult, bool) {
	for _, p := range f.Positions {
		if p.Name == name {
			return p.Position, true
		}
	}
	return PositionResult{}, false
}
