package eventstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/logfields"
)

// UserActivity is a read model of one user's journal.
type UserActivity struct {
	UserID           string    `json:"user_id"`
	Materializations int       `json:"materializations"`
	Resets           int       `json:"resets"`
	ManualEntries    int       `json:"manual_entries"`
	DefaultChanges   int       `json:"default_changes"`
	LastEventAt      time.Time `json:"last_event_at"`
	LastEventType    string    `json:"last_event_type"`
}

// ActivityProjection keeps per-user activity counters, reconstructed from
// the journal and kept current by Apply.
type ActivityProjection struct {
	mu    sync.RWMutex
	store Store
	users map[string]*UserActivity
}

// NewActivityProjection creates a projection backed by store.
func NewActivityProjection(store Store) *ActivityProjection {
	return &ActivityProjection{store: store, users: make(map[string]*UserActivity)}
}

// Rebuild replaces the projection with one computed from every stored event.
func (p *ActivityProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = make(map[string]*UserActivity)
	for _, e := range events {
		p.applyLocked(e)
	}
	slog.Debug("Activity projection rebuilt", logfields.Count(len(events)))
	return nil
}

// Apply folds one event into the projection.
func (p *ActivityProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *ActivityProjection) applyLocked(e Event) {
	a, ok := p.users[e.UserID()]
	if !ok {
		a = &UserActivity{UserID: e.UserID()}
		p.users[e.UserID()] = a
	}
	switch e.Type() {
	case TypeDayMaterialized:
		a.Materializations++
	case TypeDayReset:
		a.Resets++
	case TypeManualSaved, TypeManualCleared:
		a.ManualEntries++
	case TypeDefaultSaved, TypeDefaultCleared:
		a.DefaultChanges++
	}
	if !e.Timestamp().Before(a.LastEventAt) {
		a.LastEventAt = e.Timestamp()
		a.LastEventType = e.Type()
	}
}

// Get returns a copy of the activity for user.
func (p *ActivityProjection) Get(user string) (UserActivity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.users[user]
	if !ok {
		return UserActivity{UserID: user}, false
	}
	return *a, true
}
