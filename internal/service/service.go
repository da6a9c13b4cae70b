// Package service runs tracker operations against persistent per-user state.
//
// Every mutating call loads the user's state, applies one core operation,
// saves the state, journals the change and publishes a notification. Calls
// for the same user are serialized; calls for different users run in
// parallel.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/dayid"
	"git.home.luguber.info/inful/daytrack/internal/eventstore"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
	"git.home.luguber.info/inful/daytrack/internal/logfields"
	"git.home.luguber.info/inful/daytrack/internal/metrics"
	"git.home.luguber.info/inful/daytrack/internal/notify"
	"git.home.luguber.info/inful/daytrack/internal/tracker"
)

// StateStore persists one tracker state per user.
type StateStore interface {
	Load(ctx context.Context, user string) (*tracker.State, error)
	Save(ctx context.Context, user string, s *tracker.State) error
	Users(ctx context.Context) ([]string, error)
}

// Options configures a Tracker. Only Store is required.
type Options struct {
	Store     StateStore
	Journal   eventstore.Store
	Recorder  metrics.Recorder
	Publisher notify.Publisher
	Logger    *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
	// DefaultTimezone applies to users without their own timezone.
	DefaultTimezone string
	// Users maps configured user ids to their timezone ("" for the default).
	Users map[string]string
	// Metrics is the tracked set used by ResetDay without explicit metrics.
	Metrics []string
	// Source is recorded in journal metadata, e.g. "cli" or "daemon".
	Source string
}

// Tracker is the application service around the tracker core.
type Tracker struct {
	store     StateStore
	journal   eventstore.Store
	recorder  metrics.Recorder
	publisher notify.Publisher
	logger    *slog.Logger
	now       func() time.Time
	source    string

	mu        sync.RWMutex
	defaultTZ string
	users     map[string]string
	metrics   []string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a Tracker from opts.
func New(opts Options) (*Tracker, error) {
	if opts.Store == nil {
		return nil, errors.InternalError("tracker service requires a state store").Build()
	}
	t := &Tracker{
		store:     opts.Store,
		journal:   opts.Journal,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
		source:    opts.Source,
		locks:     make(map[string]*sync.Mutex),
	}
	if t.recorder == nil {
		t.recorder = metrics.NoopRecorder{}
	}
	if t.publisher == nil {
		t.publisher = notify.NoopPublisher{}
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.source == "" {
		t.source = "api"
	}
	if err := t.Reconfigure(opts.DefaultTimezone, opts.Users, opts.Metrics); err != nil {
		return nil, err
	}
	return t, nil
}

// Reconfigure replaces the default timezone, user table and tracked metrics.
// It is safe to call while operations are running.
func (t *Tracker) Reconfigure(defaultTZ string, users map[string]string, tracked []string) error {
	if _, err := dayid.LoadLocation(defaultTZ); err != nil {
		return err
	}
	u := make(map[string]string, len(users))
	for id, tz := range users {
		u[id] = tz
	}
	if len(tracked) == 0 {
		tracked = tracker.StandardMetrics
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaultTZ = defaultTZ
	t.users = u
	t.metrics = slices.Clone(tracked)
	return nil
}

// Timezone returns the timezone used for user when none is given explicitly.
func (t *Tracker) Timezone(user string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tz := t.users[user]; tz != "" {
		return tz
	}
	return t.defaultTZ
}

func (t *Tracker) timezone(user, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return t.Timezone(user)
}

// Users returns configured users plus any user with stored state, sorted.
func (t *Tracker) Users(ctx context.Context) ([]string, error) {
	stored, err := t.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	for id := range t.users {
		stored = append(stored, id)
	}
	t.mu.RUnlock()
	slices.Sort(stored)
	return slices.Compact(stored), nil
}

func (t *Tracker) trackedMetrics() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.metrics)
}

// lock serializes access to one user's state.
func (t *Tracker) lock(user string) func() {
	t.locksMu.Lock()
	m, ok := t.locks[user]
	if !ok {
		m = &sync.Mutex{}
		t.locks[user] = m
	}
	t.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// change is one journaled state change.
type change struct {
	eventType string
	payload   any
}

// commit saves s, journals changes and publishes them. A journal failure is
// returned after the state is saved; a publish failure is only logged.
func (t *Tracker) commit(ctx context.Context, user string, s *tracker.State, changes []change) error {
	if err := t.store.Save(ctx, user, s); err != nil {
		return err
	}

	var journalErr error
	for _, c := range changes {
		payload, err := eventstore.MarshalPayload(c.payload)
		if err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode event payload").Build()
		}

		event := notify.Event{User: user, Type: c.eventType, Timestamp: t.now().UTC(), Payload: json.RawMessage(payload)}
		if t.journal != nil && journalErr == nil {
			id, err := t.journal.Append(ctx, user, c.eventType, payload, map[string]string{"source": t.source})
			if err != nil {
				journalErr = err
				t.logger.Error("Failed to journal tracker event",
					logfields.User(user), logfields.EventType(c.eventType), logfields.Error(err))
			}
			event.EventID = id
		}

		if err := t.publisher.Publish(ctx, event); err != nil {
			t.logger.Warn("Failed to publish tracker event",
				logfields.User(user), logfields.EventType(c.eventType), logfields.Error(err))
		}
	}
	return journalErr
}

// Snapshot returns a copy of the user's current state.
func (t *Tracker) Snapshot(ctx context.Context, user string) (*tracker.State, error) {
	unlock := t.lock(user)
	defer unlock()
	s, err := t.store.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// History returns the user's journaled events, oldest first.
func (t *Tracker) History(ctx context.Context, user string) ([]eventstore.Event, error) {
	if t.journal == nil {
		return nil, errors.NotFoundError("no event journal configured").Build()
	}
	return t.journal.GetByUser(ctx, user)
}

func (t *Tracker) finish(op string, err error, changed bool) {
	switch {
	case err != nil:
		t.recorder.IncOperation(op, metrics.ResultFailed)
	case changed:
		t.recorder.IncOperation(op, metrics.ResultSuccess)
	default:
		t.recorder.IncOperation(op, metrics.ResultNoop)
	}
}
