// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of background work run on a cron schedule.
type Job struct {
	Name     string
	Schedule string        // standard 5-field cron spec or a descriptor like "@every 1h"
	Timeout  time.Duration // per run; 0 means one minute
	Run      func(ctx context.Context) error
}

// Parser accepts standard cron specs plus descriptors.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec parses.
func ValidateSchedule(spec string) error {
	if _, err := Parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler runs jobs. A job whose previous run is still going is skipped.
type Scheduler struct {
	c      *cron.Cron
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler that evaluates schedules in loc.
func NewScheduler(loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(Parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job.
func (s *Scheduler) Add(j Job) error {
	if j.Timeout <= 0 {
		j.Timeout = time.Minute
	}
	_, err := s.c.AddFunc(j.Schedule, func() { s.runJob(j) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", j.Name, err)
	}
	s.log.Info("scheduled job", zap.String("job", j.Name), zap.String("schedule", j.Schedule))
	return nil
}

func (s *Scheduler) runJob(j Job) {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, j.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", zap.String("job", j.Name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.log.Warn("job failed",
			zap.String("job", j.Name),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return
	}
	s.log.Debug("job finished", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop stops scheduling, cancels running jobs and waits for them until ctx
// is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.c.Stop()
	s.cancel()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs a job synchronously, outside the schedule. It does nothing
// once the scheduler is stopped.
func (s *Scheduler) RunNow(j Job) {
	if s.ctx.Err() != nil {
		return
	}
	if j.Timeout <= 0 {
		j.Timeout = time.Minute
	}
	s.runJob(j)
}
