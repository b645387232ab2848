package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orbit-engine/core"
	"github.com/signalsfoundry/orbit-engine/internal/render"
	"github.com/signalsfoundry/orbit-engine/model"
)

func newPositionsCmd(g *globalFlags) *cobra.Command {
	var (
		elapsed float64
		body    string
		path    int
	)
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Print positions at an explicit elapsed time",
		Long: `Evaluate every body (or one with --body) at --at simulated seconds
without running a clock. With --path N the sampled orbit outline of each
selected body is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printPositions(cmd.OutOrStdout(), g, elapsed, body, path)
		},
	}
	cmd.Flags().Float64Var(&elapsed, "at", 0, "simulated elapsed seconds")
	cmd.Flags().StringVar(&body, "body", "", "only this body")
	cmd.Flags().IntVar(&path, "path", 0, "print N sampled points along each orbit")
	return cmd
}

func printPositions(out io.Writer, g *globalFlags, elapsed float64, body string, path int) error {
	sys, err := core.LoadSystemFile(g.systemPath)
	if err != nil {
		return err
	}
	engine, err := core.NewSimulationEngineFromSystem(sys, g.solverOptions())
	if err != nil {
		return err
	}
	defer engine.Close()

	bodies := sys.Bodies
	if body != "" {
		b, err := engine.Store().GetBody(body)
		if err != nil {
			return err
		}
		bodies = []model.OrbitalBody{b}
	}

	if path > 0 {
		for _, b := range bodies {
			pts := core.OrbitPath(b, path)
			if pts == nil {
				return fmt.Errorf("--path needs at least 3 samples, got %d", path)
			}
			if err := render.WritePath(out, b.Name, pts); err != nil {
				return err
			}
		}
		return nil
	}

	frame := engine.Positions(elapsed)
	if body != "" {
		pos, err := engine.Position(body, elapsed)
		if err != nil {
			return err
		}
		frame.Positions = []model.BodyPosition{{Name: body, Position: pos}}
	}
	return render.NewFrameWriter(out, sys.Bodies, sys.ReferencePeriodSeconds).WriteFrame(frame, nil)
}
