package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyUser       = "user"
	KeyMetric     = "metric"
	KeyDay        = "day"
	KeyTimezone   = "timezone"
	KeyLevel      = "level"
	KeyEventType  = "event_type"
	KeyJobID      = "job_id"
	KeySchedule   = "schedule_name"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func User(id string) slog.Attr        { return slog.String(KeyUser, id) }
func Metric(name string) slog.Attr    { return slog.String(KeyMetric, name) }
func Day(id string) slog.Attr         { return slog.String(KeyDay, id) }
func Timezone(tz string) slog.Attr    { return slog.String(KeyTimezone, tz) }
func Level(v int) slog.Attr           { return slog.Int(KeyLevel, v) }
func EventType(t string) slog.Attr    { return slog.String(KeyEventType, t) }
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func ScheduleName(n string) slog.Attr { return slog.String(KeySchedule, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
