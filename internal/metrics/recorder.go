package metrics

import "time"

// ResultLabel enumerates operation result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultNoop    ResultLabel = "noop" // Completed without changing state
)

// Operation names used as label values.
const (
	OpSaveDefault = "save_default"
	OpSaveManual  = "save_manual"
	OpResetDay    = "reset_day"
	OpMaterialize = "materialize"
)

// Recorder defines observability hooks for tracker operations.
type Recorder interface {
	IncOperation(op string, result ResultLabel)
	IncMaterialized(metric string)
	ObservePassDuration(d time.Duration)
	SetTrackedUsers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncOperation(string, ResultLabel)  {}
func (NoopRecorder) IncMaterialized(string)            {}
func (NoopRecorder) ObservePassDuration(time.Duration) {}
func (NoopRecorder) SetTrackedUsers(int)               {}
