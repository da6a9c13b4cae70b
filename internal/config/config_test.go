package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
version: "1"
users:
  - id: alice
    timezone: Europe/Oslo
  - id: bob
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultMetrics, cfg.Tracker.Metrics)
	assert.Equal(t, "UTC", cfg.Tracker.DefaultTimezone)
	assert.Equal(t, "Europe/Oslo", cfg.UserTimezone("alice"))
	assert.Equal(t, "UTC", cfg.UserTimezone("bob"))
	assert.Equal(t, "UTC", cfg.UserTimezone("carol"))
	assert.Equal(t, DefaultSchedule, cfg.Daemon.Schedule)
	assert.Equal(t, DefaultAdminAddr, cfg.Daemon.AdminAddr)
	require.NotNil(t, cfg.Daemon.CatchUpOnStart)
	assert.True(t, *cfg.Daemon.CatchUpOnStart)
	assert.Equal(t, DefaultSubject, cfg.Notify.Subject)
	assert.Equal(t, LogLevelInfo, cfg.Monitoring.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Monitoring.Logging.Format)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("DAYTRACK_TEST_DIR", "/var/lib/daytrack")

	cfg, err := Parse([]byte("version: \"1\"\nstorage:\n  data_dir: ${DAYTRACK_TEST_DIR}/state\n"))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/daytrack/state", cfg.Storage.DataDir)
	assert.Equal(t, "/var/lib/daytrack/state/journal.db", cfg.Storage.Journal)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"wrong version", `version: "2"`, "unsupported configuration version"},
		{"bad yaml", "version: [", "failed to decode"},
		{"bad timezone", "version: \"1\"\nusers:\n  - id: a\n    timezone: Mars/Base\n", "users[0].timezone"},
		{"duplicate user", "version: \"1\"\nusers:\n  - id: a\n  - id: a\n", "duplicate id"},
		{"path in user id", "version: \"1\"\nusers:\n  - id: ../etc\n", "invalid id"},
		{"bad schedule", "version: \"1\"\ndaemon:\n  schedule: every day\n", "daemon.schedule"},
		{"bad backoff", "version: \"1\"\nnotify:\n  retry:\n    backoff: random\n", "notify.retry.backoff"},
		{"retry initial above max", "version: \"1\"\nnotify:\n  retry:\n    initial: 10s\n    max: 1s\n", "exceeds max"},
		{"negative retries", "version: \"1\"\nnotify:\n  retry:\n    max_retries: -2\n", "max retries cannot be negative"},
		{"duplicate metric", "version: \"1\"\ntracker:\n  metrics: [pain, pain]\n", "duplicate metric"},
		{"notify without url", "version: \"1\"\nnotify:\n  enabled: true\n", "notify.nats_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daytrack.yaml")

	require.NoError(t, Init(path, false))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Users, 2)
	assert.Equal(t, "America/New_York", cfg.UserTimezone("bob"))

	err = Init(path, false)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.NoError(t, Init(path, true))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DAYTRACK_ENV_ONLY=from-file\nDAYTRACK_ENV_SET=from-file\n"), 0o600))
	t.Setenv("DAYTRACK_ENV_SET", "from-process")
	t.Setenv("DAYTRACK_ENV_ONLY", "")
	require.NoError(t, os.Unsetenv("DAYTRACK_ENV_ONLY"))

	require.NoError(t, loadEnvFile())

	assert.Equal(t, "from-file", os.Getenv("DAYTRACK_ENV_ONLY"))
	assert.Equal(t, "from-process", os.Getenv("DAYTRACK_ENV_SET"))
}

func TestLogging(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel(" WARNING "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("loud"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))

	l := MonitoringLogging{Level: LogLevelError, Format: LogFormatJSON}
	assert.Equal(t, slog.LevelError, l.SlogLevel(false))
	assert.Equal(t, slog.LevelDebug, l.SlogLevel(true))

	var buf bytes.Buffer
	l.NewLogger(&buf, false).Error("stored", "metric", "pain")
	assert.Contains(t, buf.String(), `"metric":"pain"`)
}

func TestRetryBackoffMode(t *testing.T) {
	assert.Equal(t, "linear", RetryConfig{Backoff: " Linear "}.BackoffMode())
	assert.Equal(t, "exponential", RetryConfig{}.BackoffMode())
	assert.Equal(t, "fixed", RetryConfig{Backoff: "FIXED"}.BackoffMode())
}
