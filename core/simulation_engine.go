package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/orbit-engine/internal/logging"
	"github.com/signalsfoundry/orbit-engine/kb"
	"github.com/signalsfoundry/orbit-engine/model"
	"github.com/signalsfoundry/orbit-engine/timectrl"
)

// TickObserver receives per-tick statistics, typically for metrics.
type TickObserver interface {
	ObserveTick(state timectrl.ClockState, bodies int, took time.Duration)
}

// EngineOption customises SimulationEngine construction.
type EngineOption func(*SimulationEngine)

// WithParallelism evaluates bodies on up to n goroutines per frame. Values
// below 2 keep evaluation sequential.
func WithParallelism(n int) EngineOption {
	return func(e *SimulationEngine) {
		e.parallelism = n
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *SimulationEngine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTickObserver attaches an observer notified after each successful tick.
func WithTickObserver(o TickObserver) EngineOption {
	return func(e *SimulationEngine) {
		e.observer = o
	}
}

// SimulationEngine owns the simulation clock and evaluates every registered
// body once per tick. Tick, control calls and Reset are serialised so each
// tick observes a single consistent clock.
type SimulationEngine struct {
	mu    sync.Mutex
	clock *timectrl.SimulationClock

	store  *kb.KnowledgeBase
	solver *Solver

	modelsMu sync.Mutex
	models   map[string]cachedModel

	parallelism   int
	log           logging.Logger
	observer      TickObserver
	tickListeners []func(model.Frame)
	unsubscribe   func()
}

// NewSimulationEngine wires an engine to a body store and solver with a
// fresh clock.
func NewSimulationEngine(store *kb.KnowledgeBase, solver *Solver, opts ...EngineOption) *SimulationEngine {
	e := &SimulationEngine{
		clock:  timectrl.NewSimulationClock(),
		store:  store,
		solver: solver,
		models: make(map[string]cachedModel),
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.unsubscribe = store.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventBodyRemoved {
			e.modelsMu.Lock()
			delete(e.models, ev.Body.Name)
			e.modelsMu.Unlock()
		}
	})
	return e
}

// NewSimulationEngineFromSystem registers the system's bodies in a new store
// and returns an engine over them.
func NewSimulationEngineFromSystem(sys *System, solverOpts []SolverOption, opts ...EngineOption) (*SimulationEngine, error) {
	solver, err := NewSolver(sys.ReferencePeriodSeconds, solverOpts...)
	if err != nil {
		return nil, err
	}
	store := kb.NewKnowledgeBase()
	if err := store.AddBodies(sys.Bodies); err != nil {
		return nil, fmt.Errorf("register bodies: %w", err)
	}
	return NewSimulationEngine(store, solver, opts...), nil
}

// Close detaches the engine from its store.
func (e *SimulationEngine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Store returns the body store backing the engine.
func (e *SimulationEngine) Store() *kb.KnowledgeBase { return e.store }

// Solver returns the engine's solver.
func (e *SimulationEngine) Solver() *Solver { return e.solver }

// RegisterTickListener registers a callback invoked with every tick's frame.
// Listeners must be registered before ticking starts.
func (e *SimulationEngine) RegisterTickListener(fn func(model.Frame)) {
	e.tickListeners = append(e.tickListeners, fn)
}

// Tick advances the clock by one wall-clock delta and evaluates all bodies
// at the new elapsed time. A rejected delta leaves the clock and the stored
// frame untouched.
func (e *SimulationEngine) Tick(wallDeltaSeconds float64) (model.Frame, error) {
	start := time.Now()

	e.mu.Lock()
	if err := e.clock.Advance(wallDeltaSeconds); err != nil {
		e.mu.Unlock()
		e.log.Warn(context.Background(), "tick rejected", logging.Float64("wall_delta", wallDeltaSeconds), logging.Err(err))
		return model.Frame{}, err
	}
	state := e.clock.Snapshot()
	frame := e.evaluate(state.ElapsedSeconds)
	// Stored under the lock so the latest frame always matches the latest tick.
	e.store.UpdateFrame(frame)
	e.mu.Unlock()

	for _, fn := range e.tickListeners {
		fn(frame)
	}
	if e.observer != nil {
		e.observer.ObserveTick(state, len(frame.Positions), time.Since(start))
	}
	return frame, nil
}

// Attach registers the engine as a frame listener on d. Rejected ticks are
// logged and skipped.
func (e *SimulationEngine) Attach(d *timectrl.Driver) {
	d.AddListener(func(wallDelta float64) {
		_, _ = e.Tick(wallDelta)
	})
}

// Positions evaluates every body at an explicit elapsed time without
// touching the clock.
func (e *SimulationEngine) Positions(elapsed float64) model.Frame {
	return e.evaluate(elapsed)
}

// Position evaluates a single named body at an explicit elapsed time.
func (e *SimulationEngine) Position(name string, elapsed float64) (model.PositionResult, error) {
	body, err := e.store.GetBody(name)
	if err != nil {
		return model.PositionResult{}, err
	}
	return e.modelFor(body).Position(elapsed), nil
}

// SetPlaying toggles play/pause on the current clock.
func (e *SimulationEngine) SetPlaying(playing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.SetPlaying(playing)
	e.log.Debug(context.Background(), "playback changed", logging.Bool("playing", playing))
}

// SetSpeed changes the speed multiplier on the current clock.
func (e *SimulationEngine) SetSpeed(multiplier float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.clock.SetSpeed(multiplier); err != nil {
		return err
	}
	e.log.Debug(context.Background(), "speed changed", logging.Float64("speed", multiplier))
	return nil
}

// Reset replaces the clock with a freshly constructed one at elapsed 0 and
// stores the frame for elapsed 0, so the latest frame never predates the reset.
func (e *SimulationEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = timectrl.NewSimulationClock()
	e.store.UpdateFrame(e.evaluate(0))
	e.log.Info(context.Background(), "simulation clock reset")
}

// ClockState returns a snapshot of the current clock.
func (e *SimulationEngine) ClockState() timectrl.ClockState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Snapshot()
}

// cachedModel remembers the elements a model was built from, so a body
// re-registered under the same name never reuses a stale model.
type cachedModel struct {
	body  model.OrbitalBody
	model MotionModel
}

func (e *SimulationEngine) modelFor(body model.OrbitalBody) MotionModel {
	e.modelsMu.Lock()
	defer e.modelsMu.Unlock()
	c, ok := e.models[body.Name]
	if !ok || c.body != body {
		c = cachedModel{body: body, model: NewMotionModel(e.solver, body)}
		e.models[body.Name] = c
	}
	return c.model
}

func (e *SimulationEngine) evaluate(elapsed float64) model.Frame {
	bodies := e.store.ListBodies()
	frame := model.Frame{
		ElapsedSeconds: elapsed,
		Positions:      make([]model.BodyPosition, len(bodies)),
	}

	if e.parallelism < 2 || len(bodies) < 2 {
		for i, b := range bodies {
			frame.Positions[i] = model.BodyPosition{Name: b.Name, Position: e.modelFor(b).Position(elapsed)}
		}
		return frame
	}

	workers := e.parallelism
	if workers > len(bodies) {
		workers = len(bodies)
	}
	jobs := make(chan int, len(bodies))
	for i := range bodies {
		jobs <- i
	}
	close(jobs)

	// Each worker writes only its own indices, so no further locking is needed.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				b := bodies[i]
				frame.Positions[i] = model.BodyPosition{Name: b.Name, Position: e.modelFor(b).Position(elapsed)}
			}
		}()
	}
	wg.Wait()
	return frame
}
