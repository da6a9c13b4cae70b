package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, ModeExponential, p.Mode)
	assert.Equal(t, 200*time.Millisecond, p.Initial)
	assert.Equal(t, 5*time.Second, p.Max)
	assert.Equal(t, 3, p.MaxRetries)
	require.NoError(t, p.Validate())
}

// TestNewPolicyOverrides checks that zero fields fall back and bad values are rejected.
func TestNewPolicyOverrides(t *testing.T) {
	p, err := NewPolicy(ModeFixed, time.Second, 2*time.Second, 5)
	require.NoError(t, err)
	assert.Equal(t, Policy{Mode: ModeFixed, Initial: time.Second, Max: 2 * time.Second, MaxRetries: 5}, p)

	p, err = NewPolicy("", 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	_, err = NewPolicy(ModeFixed, 5*time.Second, 2*time.Second, 1)
	assert.ErrorContains(t, err, "exceeds max")
	_, err = NewPolicy("bogus", 0, 0, 0)
	assert.ErrorContains(t, err, "unknown backoff mode")
	_, err = NewPolicy(ModeLinear, -time.Second, 0, 0)
	assert.Error(t, err)
	_, err = NewPolicy(ModeLinear, 0, 0, -1)
	assert.Error(t, err)
}

func policy(mode Mode, initial, maxDuration time.Duration, maxRetries int) Policy {
	return Policy{Mode: mode, Initial: initial, Max: maxDuration, MaxRetries: maxRetries}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name   string
		policy Policy
		want   []time.Duration // attempts 1..n
	}{
		{"fixed", policy(ModeFixed, 100*ms, 500*ms, 3), []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"linear", policy(ModeLinear, 100*ms, 250*ms, 5), []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential", policy(ModeExponential, 50*ms, 160*ms, 5), []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				assert.Equal(t, want, tt.policy.Delay(i+1), "attempt %d", i+1)
			}
			assert.Zero(t, tt.policy.Delay(0))
			assert.Zero(t, tt.policy.Delay(-1))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Policy{Mode: ModeFixed, Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Mode: ModeFixed, Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Mode: ModeFixed, Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
	assert.Error(t, Policy{Mode: ModeFixed, Initial: 2 * time.Second, Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second}.Validate())
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	p := policy(ModeFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.NotifyError("publish failed").Build()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAfterMaxRetries(t *testing.T) {
	p := policy(ModeFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.StoreError("disk busy").Build()
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	p := policy(ModeFixed, time.Millisecond, time.Millisecond, 5)
	for _, perm := range []error{
		errors.ValidationError("bad input").Build(),
		stderrors.New("unclassified"),
	} {
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return perm
		})
		assert.Equal(t, perm, err)
		assert.Equal(t, 1, calls)
	}
}

func TestDoHonoursContext(t *testing.T) {
	p := policy(ModeFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		return errors.NotifyError("down").Build()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
