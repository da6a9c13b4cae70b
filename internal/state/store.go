package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/tracker"
)

const documentVersion = 1

// document is the on-disk envelope around a tracker state.
type document struct {
	Version   int            `json:"version"`
	User      string         `json:"user"`
	UpdatedAt time.Time      `json:"updated_at"`
	State     *tracker.State `json:"state"`
}

// StoreHealth reports whether the store can reach its data directory.
type StoreHealth struct {
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
	Users       int        `json:"users"`
	StorageSize int64      `json:"storage_size"`
	LastSaved   *time.Time `json:"last_saved,omitempty"`
	CheckedAt   time.Time  `json:"checked_at"`
}

// JSONStore stores one JSON document per user.
type JSONStore struct {
	dir       string
	mu        sync.RWMutex
	lastSaved *time.Time
}

// NewJSONStore creates the users directory under dataDir if needed.
func NewJSONStore(dataDir string) (*JSONStore, error) {
	dir := filepath.Join(dataDir, "users")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, ErrWriteFailed.WithContext("data_dir", dataDir).WithContext("cause", err.Error())
	}
	return &JSONStore{dir: dir}, nil
}

func (js *JSONStore) path(user string) (string, error) {
	if user == "" || user == "." || user == ".." || strings.ContainsAny(user, `/\`) {
		return "", ErrInvalidUserID.ForUser(user)
	}
	return filepath.Join(js.dir, user+".json"), nil
}

// Load returns the stored state for user, or a fresh state when none exists.
func (js *JSONStore) Load(_ context.Context, user string) (*tracker.State, error) {
	p, err := js.path(user)
	if err != nil {
		return nil, err
	}

	js.mu.RLock()
	data, err := os.ReadFile(p)
	js.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return tracker.NewState(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrReadFailed.ForUser(user), err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrReadFailed.ForUser(user), p, err)
	}
	if doc.State == nil {
		return tracker.NewState(), nil
	}
	// Round-trip through Clone so every map is allocated.
	return doc.State.Clone(), nil
}

// Save writes the state for user atomically.
func (js *JSONStore) Save(_ context.Context, user string, s *tracker.State) error {
	p, err := js.path(user)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	data, err := json.MarshalIndent(document{Version: documentVersion, User: user, UpdatedAt: now, State: s}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrWriteFailed.ForUser(user), err)
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed.ForUser(user), err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrWriteFailed.ForUser(user), err)
	}
	js.lastSaved = &now
	return nil
}

// Users lists the ids that have a stored document, sorted.
func (js *JSONStore) Users(_ context.Context) ([]string, error) {
	js.mu.RLock()
	defer js.mu.RUnlock()

	entries, err := os.ReadDir(js.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	var users []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		users = append(users, strings.TrimSuffix(e.Name(), ".json"))
	}
	slices.Sort(users)
	return users, nil
}

// Health reports whether the data directory is accessible.
func (js *JSONStore) Health(_ context.Context) StoreHealth {
	js.mu.RLock()
	defer js.mu.RUnlock()

	health := StoreHealth{Status: "healthy", CheckedAt: time.Now(), LastSaved: js.lastSaved}
	entries, err := os.ReadDir(js.dir)
	if err != nil {
		health.Status = "unhealthy"
		health.Message = fmt.Sprintf("cannot access data directory: %v", err)
		return health
	}
	for _, e := range entries {
		if info, err := e.Info(); err == nil && !e.IsDir() {
			health.StorageSize += info.Size()
			if strings.HasSuffix(e.Name(), ".json") {
				health.Users++
			}
		}
	}
	return health
}
