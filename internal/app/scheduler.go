package app

import (
	"context"
	"time"

	"github.com/hedvall/vakthund/pkg/logger"
)

// Clock abstracts time so the sync cadence can be unit-tested by advancing
// a virtual clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock implements Clock on the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler drives the periodic sync cycle. It owns its lifecycle: one
// optional warmup, then the cycle on a completion-rearmed interval. The
// next wait starts only after the previous cycle returns, so a slow cycle
// delays but never overlaps the next one.
type Scheduler struct {
	interval time.Duration
	clock    Clock
	warmup   func(ctx context.Context)

	stop chan struct{}
	done chan struct{}

	logger logger.Logger
}

// SchedulerOption applies a configuration option to the Scheduler.
type SchedulerOption func(*Scheduler)

// WithWarmup sets a function run once before the periodic loop begins.
func WithWarmup(fn func(ctx context.Context)) SchedulerOption {
	return func(s *Scheduler) {
		s.warmup = fn
	}
}

// WithSchedulerLogger sets a custom logger for the scheduler.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler firing cycle every interval on clock.
func NewScheduler(interval time.Duration, clock Clock, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		interval: interval,
		clock:    clock,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the scheduler loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context, cycle func(ctx context.Context)) {
	go s.run(ctx, cycle)
}

func (s *Scheduler) run(ctx context.Context, cycle func(ctx context.Context)) {
	defer close(s.done)

	if s.warmup != nil {
		s.warmup(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.clock.After(s.interval):
			cycle(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight cycle to
// finish.
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
		// already stopped
	default:
		close(s.stop)
	}
	<-s.done
}
