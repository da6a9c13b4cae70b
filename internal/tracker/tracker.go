package tracker

import (
	stderrors "errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/dayid"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

// Materialization records one default written by DailyMaterialization.
type Materialization struct {
	Metric string `json:"metric"`
	Day    string `json:"day"`
	Level  int    `json:"level"`
}

// SaveDefault configures the default level for metric.
//
// A positive value activates the default from today (in timezone) and
// writes it into today's record unless a value is already there; skip
// flags do not block this explicit write. A value <= 0 deactivates the
// default and removes today's value only when it equals the level that was
// active before this call.
//
// The only error is a timezone failure, returned before anything changes.
func SaveDefault(s *State, metric string, value int, now time.Time, timezone string) error {
	today, err := dayid.Resolve(timezone, now)
	if err != nil {
		return err
	}
	s.ensure()

	previous := s.Settings.DefaultLevels[metric]
	if value > 0 {
		tz := timezone
		if tz == "" {
			tz = dayid.UTC
		}
		s.Settings.DefaultLevels[metric] = value
		s.Settings.DefaultStartDates[metric] = &today
		s.Settings.DefaultTimeZones[metric] = &tz
		if _, ok := s.Value(metric, today); !ok {
			s.set(metric, today, value)
		}
		return nil
	}

	s.Settings.DefaultLevels[metric] = 0
	s.Settings.DefaultStartDates[metric] = nil
	s.Settings.DefaultTimeZones[metric] = nil
	if v, ok := s.Value(metric, today); ok && previous > 0 && v == previous {
		s.clear(metric, today)
	}
	return nil
}

// DailyMaterialization writes each active default into today's record.
//
// A metric is left alone when its default is inactive, starts after today,
// today carries a skip flag, or today already has a value. Running it twice
// for the same day is the same as running it once. A metric whose stored
// start date cannot be parsed is skipped and reported in the returned error;
// the other metrics are still processed.
func DailyMaterialization(s *State, now time.Time, timezone string) ([]Materialization, error) {
	today, err := dayid.ResolveDate(timezone, now)
	if err != nil {
		return nil, err
	}
	s.ensure()
	todayID := today.String()

	var (
		written []Materialization
		errs    []error
	)
	for _, metric := range s.Metrics() {
		level := s.Settings.DefaultLevels[metric]
		start := s.Settings.DefaultStartDates[metric]
		if level <= 0 || start == nil {
			continue
		}
		startDate, err := dayid.Parse(*start)
		if err != nil {
			errs = append(errs, fmt.Errorf("metric %s: default start date: %w", metric, err))
			continue
		}
		if startDate.After(today) {
			continue
		}
		if s.IsSkipped(metric, todayID) {
			continue
		}
		if _, ok := s.Value(metric, todayID); ok {
			continue
		}
		s.set(metric, todayID, level)
		written = append(written, Materialization{Metric: metric, Day: todayID, Level: level})
	}
	if len(errs) > 0 {
		return written, errors.WrapError(stderrors.Join(errs...), errors.CategoryValidation, "corrupt default settings").Build()
	}
	return written, nil
}

// ResetDay empties dayID for each metric and marks it as exempt from
// scheduled materialization. Without metrics the standard set is reset.
func ResetDay(s *State, dayID string, metrics ...string) {
	if len(metrics) == 0 {
		metrics = StandardMetrics
	}
	s.ensure()
	for _, metric := range metrics {
		s.clear(metric, dayID)
		if s.DefaultSkipDates[metric] == nil {
			s.DefaultSkipDates[metric] = make(map[string]bool)
		}
		s.DefaultSkipDates[metric][dayID] = true
	}
}

// SaveManual records a user-entered value for dayID. A value <= 0 removes
// the day's value. Skip flags are left as they are.
func SaveManual(s *State, dayID, metric string, value int) {
	s.ensure()
	s.set(metric, dayID, value)
}
