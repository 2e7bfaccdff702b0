// Package schedule runs discovery passes on a fixed cadence. The next pass
// is anchored to the previous pass's start time, so slow passes do not push
// the cadence later and fast passes do not pull it earlier.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State describes where the scheduler is in its lifecycle.
type State string

const (
	// StateIdle means no pass is executing and the scheduler is waiting
	// for the next tick (or has not started yet).
	StateIdle State = "idle"

	// StateRunning means a pass is currently executing.
	StateRunning State = "running"

	// StateStopped means the scheduler has exited and will run no more
	// passes.
	StateStopped State = "stopped"
)

// Clock abstracts time so the cadence can be tested without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the default Clock backed by the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// PassFunc executes one discovery pass.
type PassFunc func(ctx context.Context) error

// Config controls the continuous loop.
type Config struct {
	// Interval between pass starts. Must be positive for Run.
	Interval time.Duration

	// MaxPasses stops the loop after this many passes. Zero means
	// unlimited.
	MaxPasses int

	// MaxRuntime stops the loop once this much time has elapsed since
	// Run was called. Zero means unlimited.
	MaxRuntime time.Duration
}

// Validate checks the loop configuration.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.MaxPasses < 0 {
		return fmt.Errorf("max passes must be >= 0, got %d", c.MaxPasses)
	}
	if c.MaxRuntime < 0 {
		return fmt.Errorf("max runtime must be >= 0, got %v", c.MaxRuntime)
	}
	return nil
}

// Scheduler drives a PassFunc either once or on a fixed cadence.
type Scheduler struct {
	pass  PassFunc
	clock Clock

	mu    sync.Mutex
	state State
}

// New creates a scheduler for the given pass function. A nil clock defaults
// to the system clock.
func New(pass PassFunc, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		pass:  pass,
		clock: clock,
		state: StateIdle,
	}
}

// State reports the scheduler's current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RunOnce executes a single pass and stops.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.setState(StateRunning)
	defer s.setState(StateStopped)
	return s.pass(ctx)
}

// Run executes passes until the context is cancelled, MaxPasses is reached,
// or MaxRuntime elapses. A pass error is fatal and stops the loop.
//
// Cancellation during a pass flows into the pass's context; cancellation
// between passes is noticed at the interval wait. Run returns nil when it
// stops due to cancellation or a configured limit.
func (s *Scheduler) Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	defer s.setState(StateStopped)

	loopStart := s.clock.Now()
	passes := 0

	for {
		passStart := s.clock.Now()

		s.setState(StateRunning)
		if err := s.pass(ctx); err != nil {
			return err
		}
		s.setState(StateIdle)
		passes++

		if ctx.Err() != nil {
			return nil
		}
		if cfg.MaxPasses > 0 && passes >= cfg.MaxPasses {
			return nil
		}

		// Anchor the next pass to this pass's start, not its end.
		wait := cfg.Interval - s.clock.Now().Sub(passStart)
		if wait < 0 {
			wait = 0
		}

		if cfg.MaxRuntime > 0 {
			remaining := cfg.MaxRuntime - s.clock.Now().Sub(loopStart)
			if remaining <= wait {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(wait):
		}
	}
}
