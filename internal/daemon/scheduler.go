package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/daytrack/internal/logfields"
)

// Scheduler wraps a gocron scheduler. Every job runs in singleton mode: a
// run that would overlap the previous one is skipped.
type Scheduler struct {
	scheduler gocron.Scheduler

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Name implements ManagedService.
func (s *Scheduler) Name() string { return "scheduler" }

// Dependencies implements ManagedService.
func (s *Scheduler) Dependencies() []string { return nil }

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Info("Starting scheduler", logfields.Count(len(s.scheduler.Jobs())))
	s.scheduler.Start()
	s.running = true
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Info("Stopping scheduler")
	s.running = false
	return s.scheduler.Shutdown()
}

// Health implements ManagedService.
func (s *Scheduler) Health() HealthCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return HealthCheck{Name: s.Name(), Status: HealthStatusUnhealthy, Message: "scheduler not running", LastChecked: time.Now()}
	}
	return HealthCheck{Name: s.Name(), Status: HealthStatusHealthy, Message: fmt.Sprintf("%d job(s)", len(s.scheduler.Jobs())), LastChecked: time.Now()}
}

// ScheduleCron registers fn on a standard five-field cron expression and
// returns the job id.
func (s *Scheduler) ScheduleCron(name, expr string, fn func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(s.run(name, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create cron job %q: %w", name, err)
	}
	slog.Info("Scheduled job", logfields.ScheduleName(name), slog.String("cron", expr), logfields.JobID(job.ID().String()))
	return job.ID().String(), nil
}

// ScheduleEvery registers fn at a fixed interval and returns the job id.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run(name, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic job %q: %w", name, err)
	}
	return job.ID().String(), nil
}

// Remove unschedules the job with the given id.
func (s *Scheduler) Remove(id string) error {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", id, err)
	}
	return s.scheduler.RemoveJob(jobID)
}

// NextRun returns the next scheduled run of the job with the given id.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	for _, j := range s.scheduler.Jobs() {
		if j.ID().String() != id {
			continue
		}
		next, err := j.NextRun()
		if err != nil {
			return time.Time{}, false
		}
		return next, true
	}
	return time.Time{}, false
}

func (s *Scheduler) run(name string, fn func()) func() {
	return func() {
		start := time.Now()
		slog.Debug("Running scheduled job", logfields.ScheduleName(name))
		fn()
		slog.Debug("Scheduled job finished",
			logfields.ScheduleName(name),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	}
}
