package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

// Mode selects how the delay grows between attempts.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       Mode          // fixed|linear|exponential
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // maximum retry attempts after the first failure
}

// DefaultPolicy returns the default policy (exponential, 200ms initial, 5s cap, 3 retries).
func DefaultPolicy() Policy {
	return Policy{Mode: ModeExponential, Initial: 200 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 3}
}

// NewPolicy builds a policy from raw config fields. Zero fields take the
// default; anything else is kept as given and checked by Validate.
func NewPolicy(mode Mode, initial, maxDuration time.Duration, maxRetries int) (Policy, error) {
	p := DefaultPolicy()
	if mode != "" {
		p.Mode = mode
	}
	if initial != 0 {
		p.Initial = initial
	}
	if maxDuration != 0 {
		p.Max = maxDuration
	}
	if maxRetries != 0 {
		p.MaxRetries = maxRetries
	}
	return p, p.Validate()
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case ModeFixed:
		return p.Initial
	case ModeExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeFixed, ModeLinear, ModeExponential:
	default:
		return fmt.Errorf("unknown backoff mode %q", p.Mode)
	}
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.Initial > p.Max {
		return fmt.Errorf("initial %s exceeds max %s", p.Initial, p.Max)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do calls fn until it succeeds, returns an error that does not allow retry,
// the retries are used up, or ctx is done. Only classified errors whose
// retry strategy permits it are retried.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		ce, ok := errors.AsClassified(err)
		if !ok || !ce.CanRetry() || attempt >= p.MaxRetries {
			return err
		}

		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
