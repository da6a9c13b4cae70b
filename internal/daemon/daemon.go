// Package daemon runs the scheduled materialization pass and the admin HTTP
// server, and reloads the configuration file when it changes.
package daemon

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/daytrack/internal/config"
	"git.home.luguber.info/inful/daytrack/internal/eventstore"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
	"git.home.luguber.info/inful/daytrack/internal/logfields"
	"git.home.luguber.info/inful/daytrack/internal/metrics"
	"git.home.luguber.info/inful/daytrack/internal/service"
	"git.home.luguber.info/inful/daytrack/internal/version"
)

const (
	materializeJobName = "materialize"
	refreshJobName     = "activity_refresh"
)

// Daemon owns the long-running components of daytrack.
type Daemon struct {
	mu  sync.RWMutex
	cfg *config.Config

	runtime    *service.Runtime
	registry   *prom.Registry
	projection *eventstore.ActivityProjection

	orchestrator *Orchestrator
	scheduler    *Scheduler
	admin        *AdminServer
	watcher      *ConfigWatcher

	jobID     string
	startTime time.Time

	// refreshInterval is how often the activity projection is rebuilt from
	// the journal, which other processes such as the CLI also append to.
	refreshInterval time.Duration

	passMu   sync.Mutex
	lastPass *PassStatus
}

// New wires a daemon from cfg. configPath enables reload on change; pass ""
// to disable watching.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	d := &Daemon{cfg: cfg, orchestrator: NewOrchestrator(), refreshInterval: time.Minute}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Monitoring.Metrics.Enabled {
		d.registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	rt, err := service.Open(cfg, recorder, "daemon")
	if err != nil {
		return nil, err
	}
	d.runtime = rt
	d.projection = eventstore.NewActivityProjection(rt.Journal)

	d.scheduler, err = NewScheduler()
	if err != nil {
		_ = rt.Close()
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create scheduler").Build()
	}
	d.admin = NewAdminServer(cfg.Daemon.AdminAddr, d)

	services := []ManagedService{d.scheduler, d.admin}
	if configPath != "" {
		d.watcher, err = NewConfigWatcher(configPath, d.ReloadConfig)
		if err != nil {
			_ = rt.Close()
			return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create config watcher").Build()
		}
		services = append(services, d.watcher)
	}
	for _, svc := range services {
		if err := d.orchestrator.Register(svc); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}
	return d, nil
}

// Config returns the configuration currently in effect.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Tracker returns the tracker service the daemon runs.
func (d *Daemon) Tracker() *service.Tracker { return d.runtime.Tracker }

// Start schedules the materialization pass, starts all components and, when
// configured, runs one catch-up pass before returning.
func (d *Daemon) Start(ctx context.Context) error {
	d.startTime = time.Now()

	if err := d.projection.Rebuild(ctx); err != nil {
		slog.Warn("Activity projection rebuild failed", logfields.Error(err))
	}

	cfg := d.Config()
	id, err := d.scheduler.ScheduleCron(materializeJobName, cfg.Daemon.Schedule, d.scheduledPass)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to schedule materialization").
			WithContext("schedule", cfg.Daemon.Schedule).
			Build()
	}
	d.mu.Lock()
	d.jobID = id
	d.mu.Unlock()

	if _, err := d.scheduler.ScheduleEvery(refreshJobName, d.refreshInterval, d.refreshActivity); err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to schedule activity refresh").Build()
	}

	if err := d.orchestrator.StartAll(ctx); err != nil {
		return err
	}

	slog.Info("Daemon started",
		slog.String("version", version.Version),
		slog.String("admin_addr", d.admin.Addr()),
		logfields.ScheduleName(cfg.Daemon.Schedule))

	if cfg.Daemon.CatchUpOnStart != nil && *cfg.Daemon.CatchUpOnStart {
		if _, err := d.RunPass(ctx); err != nil {
			slog.Warn("Catch-up pass completed with errors", logfields.Error(err))
		}
	}
	return nil
}

// Stop shuts down all components and closes the stores.
func (d *Daemon) Stop(ctx context.Context) error {
	err := d.orchestrator.StopAll(ctx)
	if cerr := d.runtime.Close(); cerr != nil {
		err = stderrors.Join(err, cerr)
	}
	slog.Info("Daemon stopped")
	return err
}

func (d *Daemon) scheduledPass() {
	if _, err := d.RunPass(context.Background()); err != nil {
		slog.Warn("Scheduled materialization pass completed with errors", logfields.Error(err))
	}
}

func (d *Daemon) refreshActivity() {
	if err := d.projection.Rebuild(context.Background()); err != nil {
		slog.Warn("Activity projection refresh failed", logfields.Error(err))
	}
}

// RunPass materializes every user once. Concurrent calls run one after the other.
func (d *Daemon) RunPass(ctx context.Context) (service.Summary, error) {
	d.passMu.Lock()
	defer d.passMu.Unlock()

	started := time.Now()
	sum, err := d.runtime.Tracker.MaterializeAll(ctx)
	status := &PassStatus{
		StartedAt:    started,
		Duration:     sum.Duration.String(),
		Users:        sum.Users,
		Failed:       sum.Failed,
		Materialized: sum.Materialized,
	}
	if err != nil {
		status.Error = err.Error()
	}

	d.mu.Lock()
	d.lastPass = status
	d.mu.Unlock()

	if rerr := d.projection.Rebuild(ctx); rerr != nil {
		slog.Warn("Activity projection rebuild failed", logfields.Error(rerr))
	}
	return sum, err
}

// LastPass returns the status of the most recent pass, if any.
func (d *Daemon) LastPass() *PassStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.lastPass == nil {
		return nil
	}
	p := *d.lastPass
	return &p
}

// Activity returns the journal-derived activity of user.
func (d *Daemon) Activity(user string) (eventstore.UserActivity, bool) {
	return d.projection.Get(user)
}

// ReloadConfig applies users, timezones, tracked metrics and the schedule
// from cfg. Storage, admin and notification settings need a restart.
func (d *Daemon) ReloadConfig(_ context.Context, cfg *config.Config) error {
	current := d.Config()
	if cfg.Storage != current.Storage {
		slog.Warn("Storage changes require a daemon restart")
	}
	if cfg.Daemon.AdminAddr != current.Daemon.AdminAddr || cfg.Notify != current.Notify {
		slog.Warn("Admin address and notification changes require a daemon restart")
	}

	if err := d.runtime.Tracker.Reconfigure(cfg.Tracker.DefaultTimezone, service.UsersFromConfig(cfg), cfg.Tracker.Metrics); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Daemon.Schedule != current.Daemon.Schedule && d.jobID != "" {
		id, err := d.scheduler.ScheduleCron(materializeJobName, cfg.Daemon.Schedule, d.scheduledPass)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to apply new schedule").Build()
		}
		if err := d.scheduler.Remove(d.jobID); err != nil {
			slog.Warn("Failed to remove previous materialization job", logfields.JobID(d.jobID), logfields.Error(err))
		}
		d.jobID = id
	}

	next := *cfg
	next.Storage = current.Storage
	next.Daemon.AdminAddr = current.Daemon.AdminAddr
	next.Notify = current.Notify
	d.cfg = &next
	slog.Info("Configuration applied", logfields.Count(len(cfg.Users)), logfields.ScheduleName(cfg.Daemon.Schedule))
	return nil
}

// HealthReport runs all health checks.
func (d *Daemon) HealthReport(ctx context.Context) *HealthResponse {
	checks := d.orchestrator.Health()

	sh := d.runtime.Store.Health(ctx)
	store := HealthCheck{Name: storeCheckName, Status: HealthStatusHealthy, Message: sh.Message, LastChecked: sh.CheckedAt}
	if sh.Status != "healthy" {
		store.Status = HealthStatusUnhealthy
	}
	checks = append(checks, store)

	resp := &HealthResponse{
		Status:    aggregate(checks),
		Timestamp: time.Now(),
		Version:   version.Version,
		LastPass:  d.LastPass(),
		Checks:    checks,
	}
	if !d.startTime.IsZero() {
		resp.Uptime = time.Since(d.startTime).Round(time.Second).String()
	}
	d.mu.RLock()
	jobID := d.jobID
	d.mu.RUnlock()
	if next, ok := d.scheduler.NextRun(jobID); ok {
		resp.NextPass = &next
	}
	return resp
}
