package config

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"git.home.luguber.info/inful/daytrack/internal/dayid"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

// Validate checks the decoded configuration and reports every problem found.
func Validate(cfg *Config) error {
	var problems []error

	if _, err := dayid.LoadLocation(cfg.Tracker.DefaultTimezone); err != nil {
		problems = append(problems, fmt.Errorf("tracker.default_timezone: %w", err))
	}

	seenMetric := make(map[string]bool, len(cfg.Tracker.Metrics))
	for _, m := range cfg.Tracker.Metrics {
		switch {
		case strings.TrimSpace(m) == "":
			problems = append(problems, fmt.Errorf("tracker.metrics: empty metric name"))
		case seenMetric[m]:
			problems = append(problems, fmt.Errorf("tracker.metrics: duplicate metric %q", m))
		}
		seenMetric[m] = true
	}

	seenUser := make(map[string]bool, len(cfg.Users))
	for i, u := range cfg.Users {
		switch {
		case strings.TrimSpace(u.ID) == "":
			problems = append(problems, fmt.Errorf("users[%d]: id is required", i))
		case strings.ContainsAny(u.ID, `/\`) || u.ID == "." || u.ID == "..":
			problems = append(problems, fmt.Errorf("users[%d]: invalid id %q", i, u.ID))
		case seenUser[u.ID]:
			problems = append(problems, fmt.Errorf("users[%d]: duplicate id %q", i, u.ID))
		}
		seenUser[u.ID] = true
		if _, err := dayid.LoadLocation(u.Timezone); err != nil {
			problems = append(problems, fmt.Errorf("users[%d].timezone: %w", i, err))
		}
	}

	if err := ValidateSchedule(cfg.Daemon.Schedule); err != nil {
		problems = append(problems, fmt.Errorf("daemon.schedule: %w", err))
	}

	if cfg.Notify.Enabled && cfg.Notify.NATSURL == "" {
		problems = append(problems, fmt.Errorf("notify.nats_url is required when notify is enabled"))
	}
	if _, err := backoffNormalizer.NormalizeStrict(cfg.Notify.Retry.Backoff); err != nil {
		problems = append(problems, fmt.Errorf("notify.retry.backoff: %w", err))
	}
	if _, err := cfg.Notify.Retry.Policy(); err != nil {
		problems = append(problems, fmt.Errorf("notify.retry: %w", err))
	}

	if len(problems) > 0 {
		return errors.WrapError(stderrors.Join(problems...), errors.CategoryConfig, "configuration validation failed").
			Fatal().
			WithContext("problems", len(problems)).
			Build()
	}
	return nil
}

// ValidateSchedule checks a five-field cron expression with the parser
// gocron uses for cron jobs.
func ValidateSchedule(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("schedule is required")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
