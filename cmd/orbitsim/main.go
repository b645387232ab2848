package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orbit-engine/core"
	"github.com/signalsfoundry/orbit-engine/internal/logging"
	"github.com/signalsfoundry/orbit-engine/internal/render"
	"github.com/signalsfoundry/orbit-engine/model"
	"github.com/signalsfoundry/orbit-engine/timectrl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	systemPath string
	logLevel   string
	logFormat  string
	literal    bool
}

func (g *globalFlags) logger(errOut io.Writer) logging.Logger {
	cfg := logging.ConfigFromEnv()
	if g.logLevel != "" {
		cfg.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Format = g.logFormat
	}
	cfg.Writer = errOut
	return logging.New(cfg)
}

func (g *globalFlags) solverOptions(extra ...core.SolverOption) []core.SolverOption {
	if g.literal {
		extra = append(extra, core.WithLiteralMeanAnomaly())
	}
	return extra
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "orbitsim",
		Short: "2-D orbital position engine",
		Long: `Compute 2-D positions of bodies on circular and Keplerian elliptical
orbits from a simulated clock.

Bodies come from a JSON system file (--system) or the built-in solar system.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.systemPath, "system", "", "path to a JSON system file (default: built-in solar system)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug|info|warn|error (default $LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text|json (default $LOG_FORMAT or text)")
	root.PersistentFlags().BoolVar(&g.literal, "literal-mean-anomaly", false, "seed Kepler's equation with the unreduced mean anomaly")

	root.AddCommand(newRunCmd(g), newServeCmd(g), newPositionsCmd(g))
	return root
}

type runOptions struct {
	duration    time.Duration
	tick        time.Duration
	speed       float64
	realtime    bool
	every       int
	parallelism int
}

func newRunCmd(g *globalFlags) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the simulation clock locally and print frames",
		Long: `Drive the simulation clock with a frame loop and print body positions.

In the default accelerated mode each frame reports exactly --tick of wall
time, so --duration is simulated instantly. With --realtime frames are paced
against the wall clock.

Examples:
  # One simulated minute at 60 fps, printing once a second
  orbitsim run --duration 1m --every 60

  # Ten wall seconds in real time at 10x speed
  orbitsim run --realtime --duration 10s --speed 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLocal(cmd.Context(), g, opts, cmd.OutOrStdout(), g.logger(cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "total wall-clock time to drive")
	cmd.Flags().DurationVar(&opts.tick, "tick", time.Second/60, "frame interval")
	cmd.Flags().Float64Var(&opts.speed, "speed", timectrl.DefaultSpeed, fmt.Sprintf("speed multiplier (typical range %g-%g)", timectrl.SpeedMin, timectrl.SpeedMax))
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "pace frames against the wall clock")
	cmd.Flags().IntVar(&opts.every, "every", 60, "print every Nth frame")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 0, "evaluate bodies on up to N goroutines")
	return cmd
}

func runLocal(ctx context.Context, g *globalFlags, opts runOptions, out io.Writer, log logging.Logger) error {
	sys, err := core.LoadSystemFile(g.systemPath)
	if err != nil {
		return err
	}
	engine, err := core.NewSimulationEngineFromSystem(sys, g.solverOptions(),
		core.WithLogger(log),
		core.WithParallelism(opts.parallelism),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.SetSpeed(opts.speed); err != nil {
		return err
	}

	mode := timectrl.Accelerated
	if opts.realtime {
		mode = timectrl.RealTime
	}
	every := opts.every
	if every < 1 {
		every = 1
	}

	w := render.NewFrameWriter(out, sys.Bodies, sys.ReferencePeriodSeconds)
	var frames int
	var writeErr error
	engine.RegisterTickListener(func(f model.Frame) {
		frames++
		if writeErr != nil || frames%every != 0 {
			return
		}
		state := engine.ClockState()
		writeErr = w.WriteFrame(f, &state)
	})

	driver := timectrl.NewDriver(opts.tick, mode)
	engine.Attach(driver)

	log.Info(ctx, "driving simulation",
		logging.String("mode", mode.String()),
		logging.String("duration", opts.duration.String()),
		logging.Int("bodies", len(sys.Bodies)),
	)
	if err := driver.Run(ctx, opts.duration); err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}

	state := engine.ClockState()
	log.Info(ctx, "simulation finished",
		logging.Int("frames", frames),
		logging.Float64("elapsed_seconds", state.ElapsedSeconds),
	)
	return nil
}
