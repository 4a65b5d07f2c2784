// Package scheduler triggers the daily rewind on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// Job is the work run on every tick.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Scheduler runs a Job whenever its cron expression fires, evaluated in a
// fixed location. A tick that arrives while the previous run is still going
// is skipped.
type Scheduler struct {
	expr   string
	loc    *time.Location
	job    Job
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
}

// New validates expr and creates a Scheduler. A nil loc means time.Local.
func New(expr string, loc *time.Location, job Job, logger *slog.Logger) (*Scheduler, error) {
	if !gronx.IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression %q", expr)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		expr:   expr,
		loc:    loc,
		job:    job,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Next returns the first tick strictly after ref.
func (s *Scheduler) Next(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.expr, ref.In(s.loc), false)
}

// Start blocks, running the job on every tick until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "cron", s.expr, "location", s.loc.String())
	for {
		next, err := s.Next(s.now())
		if err != nil {
			s.logger.Error("next tick failed", "cron", s.expr, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
			}
			continue
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunNow(ctx)
		}
	}
}

// RunNow runs the job immediately unless a run is already in progress.
// Reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping tick")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	if err := s.job.Run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "error", err, "duration", time.Since(start))
		return true
	}
	s.logger.Info("scheduled job complete", "duration", time.Since(start))
	return true
}
