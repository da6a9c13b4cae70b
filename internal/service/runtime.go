package service

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/config"
	"git.home.luguber.info/inful/daytrack/internal/eventstore"
	"git.home.luguber.info/inful/daytrack/internal/metrics"
	"git.home.luguber.info/inful/daytrack/internal/notify"
	"git.home.luguber.info/inful/daytrack/internal/state"
)

// Runtime is a Tracker wired to the collaborators named in a configuration.
type Runtime struct {
	Tracker   *Tracker
	Store     *state.JSONStore
	Journal   *eventstore.SQLiteStore
	Publisher notify.Publisher
}

// Open builds the state store, journal and publisher described by cfg.
// recorder may be nil.
func Open(cfg *config.Config, recorder metrics.Recorder, source string) (*Runtime, error) {
	store, err := state.NewJSONStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Journal != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Journal), 0o750); err != nil {
			return nil, state.ErrWriteFailed.WithContext("journal", cfg.Storage.Journal).WithContext("cause", err.Error())
		}
	}
	journal, err := eventstore.NewSQLiteStore(cfg.Storage.Journal)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Store: store, Journal: journal, Publisher: notify.NoopPublisher{}}
	if cfg.Notify.Enabled {
		pub, err := notify.NewNATSPublisher(cfg.Notify)
		if err != nil {
			// Notifications are best effort; the tracker works without them.
			slog.Warn("Notifications disabled", slog.String("error", err.Error()))
		} else {
			rt.Publisher = pub
		}
	}

	rt.Tracker, err = New(Options{
		Store:           store,
		Journal:         journal,
		Recorder:        recorder,
		Publisher:       rt.Publisher,
		Now:             time.Now,
		DefaultTimezone: cfg.Tracker.DefaultTimezone,
		Users:           UsersFromConfig(cfg),
		Metrics:         cfg.Tracker.Metrics,
		Source:          source,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// UsersFromConfig returns the user -> timezone table of cfg.
func UsersFromConfig(cfg *config.Config) map[string]string {
	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.ID] = u.Timezone
	}
	return users
}

// Close releases the journal and publisher.
func (r *Runtime) Close() error {
	var errs []error
	if r.Publisher != nil {
		errs = append(errs, r.Publisher.Close())
	}
	if r.Journal != nil {
		errs = append(errs, r.Journal.Close())
	}
	return stderrors.Join(errs...)
}
