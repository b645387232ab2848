package timectrl

import (
	"fmt"
	"math"
	"sync"

	"github.com/signalsfoundry/orbit-engine/model"
)

const (
	// SpeedMin and SpeedMax bound the speed range exposed to operators.
	// SetSpeed accepts any positive multiplier; these are advisory.
	SpeedMin = 0.1
	SpeedMax = 100.0

	// DefaultSpeed is the multiplier of a freshly constructed clock.
	DefaultSpeed = 1.0
)

// ClockState is a consistent copy of the clock's fields.
type ClockState struct {
	ElapsedSeconds float64
	Playing        bool
	Speed          float64
}

// SimulationClock accumulates simulated seconds from wall-clock deltas.
// It has exactly one writer (the frame loop) and any number of readers.
// A reset is done by constructing a new clock, never by rewinding one.
type SimulationClock struct {
	mu      sync.RWMutex
	elapsed float64
	playing bool
	speed   float64
}

// NewSimulationClock returns a playing clock at elapsed 0 and speed 1.
func NewSimulationClock() *SimulationClock {
	return &SimulationClock{
		playing: true,
		speed:   DefaultSpeed,
	}
}

// Advance integrates one wall-clock delta. While paused the delta is
// discarded. A negative or non-finite delta is rejected and elapsed time is
// left untouched.
func (c *SimulationClock) Advance(wallDeltaSeconds float64) error {
	if math.IsNaN(wallDeltaSeconds) || math.IsInf(wallDeltaSeconds, 0) || wallDeltaSeconds < 0 {
		return fmt.Errorf("%w: wall-clock delta must be a non-negative finite number, got %v", model.ErrInvalidInput, wallDeltaSeconds)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return nil
	}
	c.elapsed += wallDeltaSeconds * c.speed
	return nil
}

// SetPlaying toggles play/pause. It takes effect on the next Advance.
func (c *SimulationClock) SetPlaying(playing bool) {
	c.mu.Lock()
	c.playing = playing
	c.mu.Unlock()
}

// SetSpeed changes the multiplier applied to subsequent deltas.
func (c *SimulationClock) SetSpeed(multiplier float64) error {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return fmt.Errorf("%w: speed multiplier must be positive, got %v", model.ErrInvalidInput, multiplier)
	}
	c.mu.Lock()
	c.speed = multiplier
	c.mu.Unlock()
	return nil
}

// Elapsed returns the accumulated simulated seconds.
func (c *SimulationClock) Elapsed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// Playing reports whether Advance currently accumulates time.
func (c *SimulationClock) Playing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playing
}

// Speed returns the current multiplier.
func (c *SimulationClock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// Snapshot returns all fields under a single read lock.
func (c *SimulationClock) Snapshot() ClockState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClockState{
		ElapsedSeconds: c.elapsed,
		Playing:        c.playing,
		Speed:          c.speed,
	}
}
