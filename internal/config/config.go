package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
	"git.home.luguber.info/inful/daytrack/internal/foundation/normalization"
	"git.home.luguber.info/inful/daytrack/internal/retry"
)

// CurrentVersion is the only configuration version this build understands.
const CurrentVersion = "1"

// Config is the daytrack configuration file.
type Config struct {
	Version    string           `yaml:"version"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Users      []UserConfig     `yaml:"users"`
	Storage    StorageConfig    `yaml:"storage"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Notify     NotifyConfig     `yaml:"notify,omitempty"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// TrackerConfig controls which metrics are tracked and the fallback timezone.
type TrackerConfig struct {
	Metrics         []string `yaml:"metrics"`          // Tracked set used by reset without explicit metrics
	DefaultTimezone string   `yaml:"default_timezone"` // Used for users without their own timezone
}

// UserConfig is one tracked user.
type UserConfig struct {
	ID       string `yaml:"id"`
	Timezone string `yaml:"timezone"`
}

// StorageConfig locates per-user state files and the event journal.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	Journal string `yaml:"journal"` // SQLite path, ":memory:" allowed
}

// DaemonConfig controls the scheduled materialization pass.
type DaemonConfig struct {
	Schedule       string `yaml:"schedule"`          // Cron expression
	AdminAddr      string `yaml:"admin_addr"`        // Listen address for /healthz, /metrics and state reads
	CatchUpOnStart *bool  `yaml:"catch_up_on_start"` // Run one pass immediately on start
}

// NotifyConfig publishes tracker events to NATS when enabled.
type NotifyConfig struct {
	Enabled bool        `yaml:"enabled"`
	NATSURL string      `yaml:"nats_url"`
	Subject string      `yaml:"subject"`
	Retry   RetryConfig `yaml:"retry"`
}

// RetryConfig controls backoff for retryable publish failures.
type RetryConfig struct {
	Backoff    string        `yaml:"backoff"` // fixed|linear|exponential
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries int           `yaml:"max_retries"`
}

var backoffNormalizer = normalization.NewNormalizer("retry backoff", map[string]string{
	"fixed":       "fixed",
	"linear":      "linear",
	"exponential": "exponential",
}, "exponential")

// BackoffMode returns the normalized backoff name. Empty or unknown values
// mean exponential; Validate rejects unknown values before they get here.
func (r RetryConfig) BackoffMode() string {
	return backoffNormalizer.Normalize(r.Backoff)
}

// Policy builds the retry policy; zero fields take the retry defaults.
func (r RetryConfig) Policy() (retry.Policy, error) {
	return retry.NewPolicy(retry.Mode(r.BackoffMode()), r.Initial, r.Max, r.MaxRetries)
}

// MonitoringConfig represents metrics and logging configuration.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

type MonitoringMetrics struct {
	Enabled bool `yaml:"enabled"`
}

type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes configuration content. ${VAR} references are expanded from
// the environment before decoding.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to decode config").Fatal().Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version: %q (expected %s)", cfg.Version, CurrentVersion)).Build()
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UserTimezone returns the timezone configured for user, falling back to
// the tracker default.
func (c *Config) UserTimezone(id string) string {
	for _, u := range c.Users {
		if u.ID == id && u.Timezone != "" {
			return u.Timezone
		}
	}
	return c.Tracker.DefaultTimezone
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	catchUp := true
	example := Config{
		Version: CurrentVersion,
		Tracker: TrackerConfig{
			Metrics:         []string{"pain", "stiffness", "fatigue"},
			DefaultTimezone: "UTC",
		},
		Users: []UserConfig{
			{ID: "alice", Timezone: "Europe/Oslo"},
			{ID: "bob", Timezone: "America/New_York"},
		},
		Storage: StorageConfig{DataDir: "./daytrack-data", Journal: "./daytrack-data/journal.db"},
		Daemon:  DaemonConfig{Schedule: DefaultSchedule, AdminAddr: DefaultAdminAddr, CatchUpOnStart: &catchUp},
		Notify: NotifyConfig{
			Enabled: false,
			NATSURL: "nats://127.0.0.1:4222",
			Subject: DefaultSubject,
			Retry:   RetryConfig{Backoff: "exponential", Initial: 200 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 3},
		},
		Monitoring: MonitoringConfig{
			Metrics: MonitoringMetrics{Enabled: true},
			Logging: MonitoringLogging{Level: LogLevelInfo, Format: LogFormatText},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
