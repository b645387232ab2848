package timectrl

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Mode describes how the Driver produces wall-clock deltas.
type Mode int

const (
	// RealTime paces frames at Tick and reports the measured wall delta.
	RealTime Mode = iota
	// Accelerated runs frames back to back, each reporting exactly Tick.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// FrameFunc receives the wall-clock seconds since the previous frame. It is
// never called with a delta <= 0.
type FrameFunc func(wallDeltaSeconds float64)

// Driver is the external frame loop: it measures wall time between frames
// and hands each delta to the registered listeners, in order.
type Driver struct {
	Tick time.Duration
	Mode Mode

	// now is swapped in tests.
	now func() time.Time

	listeners []FrameFunc
}

// NewDriver constructs a driver. A non-positive tick defaults to 1/60 s.
func NewDriver(tick time.Duration, mode Mode) *Driver {
	if tick <= 0 {
		tick = time.Second / 60
	}
	return &Driver{
		Tick: tick,
		Mode: mode,
		now:  time.Now,
	}
}

// AddListener registers a callback invoked on every frame. Listeners must be
// added before Run.
func (d *Driver) AddListener(fn FrameFunc) {
	d.listeners = append(d.listeners, fn)
}

// Run drives frames until the summed wall deltas reach duration, or until
// ctx is cancelled. A non-positive duration runs until cancellation, which is
// then not reported as an error.
func (d *Driver) Run(ctx context.Context, duration time.Duration) error {
	var limiter *rate.Limiter
	if d.Mode == RealTime {
		limiter = rate.NewLimiter(rate.Every(d.Tick), 1)
	}

	prev := d.now()
	var total time.Duration
	for duration <= 0 || total < duration {
		if err := ctx.Err(); err != nil {
			return d.stopErr(err, duration)
		}

		var delta time.Duration
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return d.stopErr(ctx.Err(), duration)
				}
				return err
			}
			now := d.now()
			delta = now.Sub(prev)
			// Frames whose timestamp did not move are dropped, so the
			// clock never sees a non-positive delta.
			if delta <= 0 {
				continue
			}
			prev = now
		} else {
			delta = d.Tick
		}

		total += delta
		secs := delta.Seconds()
		for _, fn := range d.listeners {
			fn(secs)
		}
	}
	return nil
}

// Start runs the driver in a separate goroutine. The returned channel
// receives Run's result and is then closed.
func (d *Driver) Start(ctx context.Context, duration time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- d.Run(ctx, duration)
	}()
	return done
}

func (d *Driver) stopErr(err error, duration time.Duration) error {
	if duration <= 0 && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}
