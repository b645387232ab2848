// Package render formats engine output for terminals.
package render

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/signalsfoundry/orbit-engine/core"
	"github.com/signalsfoundry/orbit-engine/model"
	"github.com/signalsfoundry/orbit-engine/timectrl"
)

// OrbitCount is the number of orbits a body has completed after elapsed
// simulated seconds. It is negative for retrograde bodies.
func OrbitCount(body model.OrbitalBody, elapsed, referencePeriodSeconds float64) float64 {
	periodSeconds := body.Period * referencePeriodSeconds
	if periodSeconds == 0 {
		return 0
	}
	return elapsed / periodSeconds
}

// FormatOrbitCount renders the label shown next to a body, e.g. "3.25 orbits".
func FormatOrbitCount(count float64) string {
	if math.Abs(count) == 1 {
		return fmt.Sprintf("%.2f orbit", count)
	}
	return fmt.Sprintf("%.2f orbits", count)
}

// FrameWriter writes frames as aligned tables.
type FrameWriter struct {
	out    io.Writer
	bodies map[string]model.OrbitalBody
	ref    float64
}

// NewFrameWriter returns a writer that labels each body from bodies using
// the given reference period. Bodies missing from the map get no label.
func NewFrameWriter(out io.Writer, bodies []model.OrbitalBody, referencePeriodSeconds float64) *FrameWriter {
	byName := make(map[string]model.OrbitalBody, len(bodies))
	for _, b := range bodies {
		byName[b.Name] = b
	}
	return &FrameWriter{out: out, bodies: byName, ref: referencePeriodSeconds}
}

// WriteFrame writes one frame, optionally headed by a clock line.
func (w *FrameWriter) WriteFrame(f model.Frame, clock *timectrl.ClockState) error {
	if clock != nil {
		state := "playing"
		if !clock.Playing {
			state = "paused"
		}
		if _, err := fmt.Fprintf(w.out, "t=%.3fs speed=%gx %s\n", clock.ElapsedSeconds, clock.Speed, state); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(w.out, "t=%.3fs\n", f.ElapsedSeconds); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "BODY\tX\tY\tANGLE(rad)\tDISTANCE\tORBITS\t")
	for _, p := range f.Positions {
		label := "-"
		if b, ok := w.bodies[p.Name]; ok {
			label = FormatOrbitCount(OrbitCount(b, f.ElapsedSeconds, w.ref))
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.4f\t%.2f\t%s\t\n",
			p.Name, p.Position.X, p.Position.Y, p.Position.Angle, p.Position.Distance, label)
	}
	return tw.Flush()
}

// WritePath writes sampled orbit points, one "x y" pair per line.
func WritePath(out io.Writer, name string, points []core.Point) error {
	if _, err := fmt.Fprintf(out, "# %s (%d points)\n", name, len(points)); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := fmt.Fprintf(out, "%.4f %.4f\n", p.X, p.Y); err != nil {
			return err
		}
	}
	return nil
}
