package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/orbit-engine/core"
	"github.com/signalsfoundry/orbit-engine/internal/api"
	"github.com/signalsfoundry/orbit-engine/internal/logging"
	"github.com/signalsfoundry/orbit-engine/internal/observability"
	"github.com/signalsfoundry/orbit-engine/timectrl"
)

// Config holds the serve command's settings.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	SystemPath     string

	LiteralMeanAnomaly bool
	Parallelism        int

	// TickInterval drives the engine clock; zero disables the frame loop so
	// time only moves through Advance RPCs.
	TickInterval time.Duration
	Accelerated  bool

	Tracing observability.TracingConfig
}

func newServeCmd(g *globalFlags) *cobra.Command {
	cfg := Config{Tracing: observability.TracingConfigFromEnv()}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over gRPC",
		Long: `Serve orbitengine.v1.EngineService over gRPC and Prometheus metrics over
HTTP. Unless --tick is 0 the engine clock is driven by an internal frame loop.

Tracing is configured from ORBIT_TRACING_* and ORBIT_OTLP_ENDPOINT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.SystemPath = g.systemPath
			cfg.LiteralMeanAnomaly = g.literal
			log := g.logger(cmd.ErrOrStderr())

			lis, err := net.Listen("tcp", cfg.ListenAddress)
			if err != nil {
				log.Error(cmd.Context(), "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
				return err
			}
			return run(cmd.Context(), cfg, log, lis)
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddress, "grpc-addr", ":50061", "TCP address the gRPC server listens on")
	cmd.Flags().StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	cmd.Flags().DurationVar(&cfg.TickInterval, "tick", time.Second/60, "frame interval of the internal loop (0 disables)")
	cmd.Flags().BoolVar(&cfg.Accelerated, "accelerated", false, "run frames back to back instead of in real time")
	cmd.Flags().IntVar(&cfg.Parallelism, "parallelism", 0, "evaluate bodies on up to N goroutines")
	return cmd
}

// run serves until ctx is cancelled. lis is owned by the gRPC server.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	sys, err := core.LoadSystemFile(cfg.SystemPath)
	if err != nil {
		return err
	}

	cfg.Tracing.Attributes = append(cfg.Tracing.Attributes,
		observability.EngineResourceAttributes(sys.ReferencePeriodSeconds, len(sys.Bodies), cfg.LiteralMeanAnomaly)...)
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return err
	}
	engineMetrics, err := observability.NewEngineCollector(reg)
	if err != nil {
		return err
	}

	solverOpts := []core.SolverOption{core.WithKeplerObserver(engineMetrics)}
	if cfg.LiteralMeanAnomaly {
		solverOpts = append(solverOpts, core.WithLiteralMeanAnomaly())
	}
	engine, err := core.NewSimulationEngineFromSystem(sys, solverOpts,
		core.WithLogger(log),
		core.WithParallelism(cfg.Parallelism),
		core.WithTickObserver(engineMetrics),
	)
	if err != nil {
		return err
	}
	defer engine.Close()
	log.Info(ctx, "loaded system",
		logging.Int("bodies", len(sys.Bodies)),
		logging.Float64("reference_period_seconds", sys.ReferencePeriodSeconds),
	)

	metricsSrv := serveMetrics(cfg.MetricsAddress, engineMetrics.Gatherer(), log)

	server := api.NewServer(api.NewEngineService(engine, log), log, rpcMetrics)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()
	log.Info(ctx, "serving engine gRPC", logging.String("addr", lis.Addr().String()))

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	var loopDone <-chan error
	if cfg.TickInterval > 0 {
		mode := timectrl.RealTime
		if cfg.Accelerated {
			mode = timectrl.Accelerated
		}
		driver := timectrl.NewDriver(cfg.TickInterval, mode)
		tracer := otel.Tracer("github.com/signalsfoundry/orbit-engine/cmd/orbitsim")
		driver.AddListener(func(wallDelta float64) {
			_, span := tracer.Start(loopCtx, "engine.frame")
			defer span.End()
			frame, err := engine.Tick(wallDelta)
			if err != nil {
				span.RecordError(err)
				return
			}
			span.SetAttributes(attribute.Float64("orbit.elapsed_seconds", frame.ElapsedSeconds))
		})
		loopDone = driver.Start(loopCtx, 0)
		log.Info(ctx, "frame loop started", logging.String("mode", mode.String()), logging.String("tick", cfg.TickInterval.String()))
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			runErr = fmt.Errorf("grpc server: %w", err)
		}
	case err := <-loopDone:
		if err != nil {
			runErr = fmt.Errorf("frame loop: %w", err)
		}
	}

	log.Info(context.Background(), "shutting down engine server")
	stopLoop()
	if loopDone != nil {
		<-loopDone
	}
	server.GracefulStop()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler(gatherer))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
