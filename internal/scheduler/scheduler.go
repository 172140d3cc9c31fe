package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per scheduled day.
type TickFunc func(ctx context.Context, day time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	RunHour      int
	StartupDelay time.Duration
}

// Scheduler drives one collection run per day at a fixed hour.
type Scheduler struct {
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.RunHour < 0 || opts.RunHour > 23 {
		panic("scheduler run hour must be between 0 and 23")
	}
	return &Scheduler{
		opts:   opts,
		now:    time.Now,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// WithClock overrides the wall clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run blocks, invoking the tick function once per day until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	for {
		next := s.NextRun(s.now().UTC())
		timer := time.NewTimer(next.Sub(s.now().UTC()))
		s.logger.Debug().Time("next_run", next).Msg("waiting for next run")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		day := next.Truncate(24 * time.Hour)
		s.logger.Info().Time("day", day).Msg("executing scheduled run")

		if err := tick(ctx, day); err != nil {
			s.logger.Error().Err(err).Time("day", day).Msg("run execution failed")
		}
	}
}

// NextRun returns the next occurrence of the configured hour after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	run := time.Date(now.Year(), now.Month(), now.Day(), s.opts.RunHour, 0, 0, 0, now.Location())
	if !run.After(now) {
		run = run.AddDate(0, 0, 1)
	}
	return run
}
