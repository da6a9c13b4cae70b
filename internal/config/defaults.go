package config

import "path/filepath"

const (
	DefaultSchedule  = "5 * * * *" // hourly, so every user's local midnight is picked up within the hour
	DefaultAdminAddr = ":8090"
	DefaultSubject   = "daytrack.events"
	DefaultDataDir   = "./daytrack-data"
	DefaultTimezone  = "UTC"
)

// DefaultMetrics is used when tracker.metrics is empty.
var DefaultMetrics = []string{"pain", "stiffness", "fatigue"}

func applyDefaults(cfg *Config) {
	if len(cfg.Tracker.Metrics) == 0 {
		cfg.Tracker.Metrics = append([]string(nil), DefaultMetrics...)
	}
	if cfg.Tracker.DefaultTimezone == "" {
		cfg.Tracker.DefaultTimezone = DefaultTimezone
	}
	for i := range cfg.Users {
		if cfg.Users[i].Timezone == "" {
			cfg.Users[i].Timezone = cfg.Tracker.DefaultTimezone
		}
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
	if cfg.Storage.Journal == "" {
		cfg.Storage.Journal = filepath.Join(cfg.Storage.DataDir, "journal.db")
	}
	if cfg.Daemon.Schedule == "" {
		cfg.Daemon.Schedule = DefaultSchedule
	}
	if cfg.Daemon.AdminAddr == "" {
		cfg.Daemon.AdminAddr = DefaultAdminAddr
	}
	if cfg.Daemon.CatchUpOnStart == nil {
		v := true
		cfg.Daemon.CatchUpOnStart = &v
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultSubject
	}
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
}
