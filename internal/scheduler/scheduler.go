package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"heartrate-go/internal/config"
)

// ErrSchedulerRunning is returned when Run is called on a scheduler that is
// already looping.
var ErrSchedulerRunning = errors.New("scheduler already running")

// Runner is a job the scheduler can execute.
type Runner interface {
	Run(ctx context.Context, now time.Time) (RunResult, error)
}

// Status is a snapshot of the scheduler's most recent activity.
type Status struct {
	NextRun    time.Time
	LastRun    time.Time
	LastResult RunResult
	LastError  string
	Runs       int
	Failures   int
}

// Scheduler runs a job on a cron schedule. Runs execute on the loop
// goroutine, so they never overlap.
type Scheduler struct {
	schedule *CronSchedule
	runner   Runner
	location *time.Location
	logger   *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	wakeup chan struct{}

	mu      sync.Mutex
	running bool
	status  Status
}

// NewScheduler creates a new Scheduler. The schedule is evaluated in
// location; nil means time.Local.
func NewScheduler(expr string, runner Runner, location *time.Location, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %w", config.ErrConfiguration, expr, err)
	}
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		schedule: schedule,
		runner:   runner,
		location: location,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
		wakeup:   make(chan struct{}, 1),
	}, nil
}

// Trigger asks the loop to run the job now instead of waiting for the next
// scheduled time. It never blocks; triggers made while a run is in progress
// coalesce into one extra run.
func (s *Scheduler) Trigger() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

// Status returns a copy of the current status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run loops until ctx is cancelled. Failed runs are logged and the loop
// waits for the next scheduled time.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.InfoContext(ctx, "scheduler started", "schedule", s.schedule.String(), "location", s.location.String())
	for {
		next := s.schedule.Next(s.now().In(s.location))
		if next.IsZero() {
			return fmt.Errorf("%w: schedule %q never fires", config.ErrConfiguration, s.schedule.String())
		}
		s.setNextRun(next)
		wait := next.Sub(s.now())
		s.logger.DebugContext(ctx, "waiting for next run", "next_run", next, "wait", wait)

		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-s.after(wait):
		case <-s.wakeup:
			s.logger.InfoContext(ctx, "run triggered")
		}
		if ctx.Err() != nil {
			return nil
		}

		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	now := s.now()
	result, err := s.runner.Run(ctx, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastRun = now
	s.status.Runs++
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
		s.logger.ErrorContext(ctx, "scheduled run failed", "error", err)
		return
	}
	s.status.LastError = ""
	s.status.LastResult = result
}

func (s *Scheduler) setNextRun(next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.NextRun = next
}
