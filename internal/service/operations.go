package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/dayid"
	"git.home.luguber.info/inful/daytrack/internal/eventstore"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
	"git.home.luguber.info/inful/daytrack/internal/logfields"
	"git.home.luguber.info/inful/daytrack/internal/metrics"
	"git.home.luguber.info/inful/daytrack/internal/tracker"
)

func validateMetric(metric string) error {
	if strings.TrimSpace(metric) == "" || strings.ContainsAny(metric, " \t\n") {
		return errors.ValidationError("invalid metric name").ForMetric(metric).Build()
	}
	return nil
}

// SaveDefault activates (value > 0) or deactivates the user's default for
// metric. An empty timezone falls back to the user's configured timezone.
func (t *Tracker) SaveDefault(ctx context.Context, user, metric string, value int, timezone string) (err error) {
	changed := false
	defer func() { t.finish(metrics.OpSaveDefault, err, changed) }()

	if err := validateMetric(metric); err != nil {
		return err
	}
	tz := t.timezone(user, timezone)
	now := t.now()
	today, err := dayid.Resolve(tz, now)
	if err != nil {
		return err
	}

	unlock := t.lock(user)
	defer unlock()

	s, err := t.store.Load(ctx, user)
	if err != nil {
		return err
	}
	previous := s.Settings.DefaultLevels[metric]
	_, hadToday := s.Value(metric, today)

	if err := tracker.SaveDefault(s, metric, value, now, tz); err != nil {
		return err
	}
	_, hasToday := s.Value(metric, today)

	var c change
	if value > 0 {
		c = change{eventstore.TypeDefaultSaved, eventstore.DefaultSaved{
			Metric: metric, Level: value, Previous: previous,
			StartDate: today, Timezone: tz, WroteToday: !hadToday && hasToday,
		}}
	} else {
		c = change{eventstore.TypeDefaultCleared, eventstore.DefaultCleared{
			Metric: metric, Previous: previous, Day: today, RemovedToday: hadToday && !hasToday,
		}}
	}
	changed = value > 0 || previous > 0
	if !changed {
		return nil
	}

	if err := t.commit(ctx, user, s, []change{c}); err != nil {
		return err
	}
	t.logger.Info("Default saved",
		logfields.User(user), logfields.Metric(metric), logfields.Level(value),
		logfields.Day(today), logfields.Timezone(tz))
	return nil
}

// SaveManual stores a user-entered value for day. A value <= 0 removes it.
// day may be zero-padded; it is stored in canonical form.
func (t *Tracker) SaveManual(ctx context.Context, user, day, metric string, value int) (err error) {
	changed := false
	defer func() { t.finish(metrics.OpSaveManual, err, changed) }()

	if err := validateMetric(metric); err != nil {
		return err
	}
	dayID, err := dayid.Normalize(day)
	if err != nil {
		return err
	}

	unlock := t.lock(user)
	defer unlock()

	s, err := t.store.Load(ctx, user)
	if err != nil {
		return err
	}
	previous, had := s.Value(metric, dayID)
	if value <= 0 && !had {
		return nil
	}
	if value > 0 && had && previous == value {
		return nil
	}

	tracker.SaveManual(s, dayID, metric, value)
	changed = true

	eventType := eventstore.TypeManualSaved
	if value <= 0 {
		eventType = eventstore.TypeManualCleared
	}
	entry := eventstore.ManualEntry{Metric: metric, Day: dayID, Level: max(value, 0), Previous: previous}
	if err := t.commit(ctx, user, s, []change{{eventType, entry}}); err != nil {
		return err
	}
	t.logger.Info("Manual value saved",
		logfields.User(user), logfields.Metric(metric), logfields.Day(dayID), logfields.Level(value))
	return nil
}

// ResetDay empties day for the given metrics (the tracked set when none are
// given) and exempts it from scheduled materialization.
func (t *Tracker) ResetDay(ctx context.Context, user, day string, metricNames ...string) (err error) {
	changed := false
	defer func() { t.finish(metrics.OpResetDay, err, changed) }()

	dayID, err := dayid.Normalize(day)
	if err != nil {
		return err
	}
	if len(metricNames) == 0 {
		metricNames = t.trackedMetrics()
	}
	for _, m := range metricNames {
		if err := validateMetric(m); err != nil {
			return err
		}
	}

	unlock := t.lock(user)
	defer unlock()

	s, err := t.store.Load(ctx, user)
	if err != nil {
		return err
	}
	tracker.ResetDay(s, dayID, metricNames...)
	changed = true

	if err := t.commit(ctx, user, s, []change{{eventstore.TypeDayReset, eventstore.DayReset{Day: dayID, Metrics: metricNames}}}); err != nil {
		return err
	}
	t.logger.Info("Day reset", logfields.User(user), logfields.Day(dayID), logfields.Count(len(metricNames)))
	return nil
}

// Materialize runs the daily materialization for one user. Writes made
// before a per-metric failure are saved and returned with the error.
func (t *Tracker) Materialize(ctx context.Context, user, timezone string) (written []tracker.Materialization, err error) {
	defer func() { t.finish(metrics.OpMaterialize, err, len(written) > 0) }()

	tz := t.timezone(user, timezone)

	unlock := t.lock(user)
	defer unlock()

	s, err := t.store.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	written, matErr := tracker.DailyMaterialization(s, t.now(), tz)
	if len(written) == 0 {
		return nil, matErr
	}

	changes := make([]change, 0, len(written))
	for _, w := range written {
		changes = append(changes, change{eventstore.TypeDayMaterialized, eventstore.DayMaterialized{
			Metric: w.Metric, Day: w.Day, Level: w.Level, Timezone: tz,
		}})
	}
	if err := t.commit(ctx, user, s, changes); err != nil {
		return written, stderrors.Join(matErr, err)
	}
	for _, w := range written {
		t.recorder.IncMaterialized(w.Metric)
		t.logger.Info("Default materialized",
			logfields.User(user), logfields.Metric(w.Metric), logfields.Day(w.Day),
			logfields.Level(w.Level), logfields.Timezone(tz))
	}
	return written, matErr
}

// Summary describes one MaterializeAll pass.
type Summary struct {
	Users        int                                  `json:"users"`
	Failed       int                                  `json:"failed"`
	Materialized int                                  `json:"materialized"`
	Writes       map[string][]tracker.Materialization `json:"writes,omitempty"`
	Duration     time.Duration                        `json:"duration"`
}

// MaterializeAll materializes every known user under their own timezone.
// A failing user is logged and counted; the pass continues with the rest and
// the failures are returned joined.
func (t *Tracker) MaterializeAll(ctx context.Context) (Summary, error) {
	start := time.Now()
	users, err := t.Users(ctx)
	if err != nil {
		return Summary{}, err
	}
	t.recorder.SetTrackedUsers(len(users))

	sum := Summary{Users: len(users), Writes: make(map[string][]tracker.Materialization)}
	var errs []error
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		written, err := t.Materialize(ctx, user, "")
		if len(written) > 0 {
			sum.Writes[user] = written
			sum.Materialized += len(written)
		}
		if err != nil {
			sum.Failed++
			errs = append(errs, errors.WrapError(err, errors.GetCategory(err), "materialization failed").
				ForUser(user).Build())
			t.logger.Error("Materialization failed", logfields.User(user), logfields.Error(err))
		}
	}

	sum.Duration = time.Since(start)
	t.recorder.ObservePassDuration(sum.Duration)
	t.logger.Info("Materialization pass complete",
		logfields.Count(sum.Materialized),
		slog.Int("users", sum.Users),
		slog.Int("failed", sum.Failed),
		logfields.DurationMS(float64(sum.Duration.Microseconds())/1000))
	return sum, stderrors.Join(errs...)
}
