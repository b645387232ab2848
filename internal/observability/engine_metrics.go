package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/orbit-engine/core"
	"github.com/signalsfoundry/orbit-engine/timectrl"
)

// EngineCollector exposes simulation-engine Prometheus metrics. It satisfies
// core.TickObserver and core.KeplerObserver.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	TicksTotal         prometheus.Counter
	TickDuration       prometheus.Histogram
	ElapsedSeconds     prometheus.Gauge
	SpeedMultiplier    prometheus.Gauge
	Playing            prometheus.Gauge
	Bodies             prometheus.Gauge
	KeplerIterations   prometheus.Histogram
	KeplerNonConverged *prometheus.CounterVec
}

// NewEngineCollector registers engine metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_ticks_total",
		Help: "Total number of accepted simulation ticks.",
	}), "engine_ticks_total")
	if err != nil {
		return nil, err
	}

	tickHistogram, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_tick_duration_seconds",
		Help:    "Wall time spent advancing the clock and evaluating all bodies for one tick.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "engine_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	elapsed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_elapsed_seconds",
		Help: "Accumulated simulated seconds on the engine clock.",
	}), "engine_elapsed_seconds")
	if err != nil {
		return nil, err
	}
	speed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_speed_multiplier",
		Help: "Current speed multiplier applied to wall-clock deltas.",
	}), "engine_speed_multiplier")
	if err != nil {
		return nil, err
	}
	playing, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_playing",
		Help: "1 when the clock accumulates time, 0 while paused.",
	}), "engine_playing")
	if err != nil {
		return nil, err
	}
	bodies, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_bodies",
		Help: "Number of bodies evaluated on the last tick.",
	}), "engine_bodies")
	if err != nil {
		return nil, err
	}

	iterations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kepler_solve_iterations",
		Help:    "Newton iterations used per Kepler solve.",
		Buckets: prometheus.LinearBuckets(0, 1, core.KeplerMaxIterations+1),
	}), "kepler_solve_iterations")
	if err != nil {
		return nil, err
	}

	nonConverged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kepler_solve_nonconverged_total",
		Help: "Kepler solves that hit the iteration cap above tolerance, labeled by body.",
	}, []string{"body"})
	nonConverged, err = registerCounterVec(reg, nonConverged, "kepler_solve_nonconverged_total")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:           gatherer,
		TicksTotal:         ticks,
		TickDuration:       tickHistogram,
		ElapsedSeconds:     elapsed,
		SpeedMultiplier:    speed,
		Playing:            playing,
		Bodies:             bodies,
		KeplerIterations:   iterations,
		KeplerNonConverged: nonConverged,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick records one accepted tick.
func (c *EngineCollector) ObserveTick(state timectrl.ClockState, bodies int, took time.Duration) {
	if c == nil {
		return
	}
	c.TicksTotal.Inc()
	c.TickDuration.Observe(took.Seconds())
	c.ElapsedSeconds.Set(state.ElapsedSeconds)
	c.SpeedMultiplier.Set(state.Speed)
	if state.Playing {
		c.Playing.Set(1)
	} else {
		c.Playing.Set(0)
	}
	c.Bodies.Set(float64(bodies))
}

// ObserveKeplerSolve records the cost and outcome of one Kepler solve.
func (c *EngineCollector) ObserveKeplerSolve(body string, sol core.KeplerSolution) {
	if c == nil {
		return
	}
	c.KeplerIterations.Observe(float64(sol.Iterations))
	if !sol.Converged {
		c.KeplerNonConverged.WithLabelValues(body).Inc()
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
