package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/daytrack/internal/tracker"
)

func newStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	dir := t.TempDir()
	js, err := NewJSONStore(dir)
	require.NoError(t, err)
	return js, dir
}

func TestLoadMissingUserReturnsEmptyState(t *testing.T) {
	js, _ := newStore(t)

	s, err := js.Load(t.Context(), "alice")

	require.NoError(t, err)
	assert.Equal(t, tracker.NewState(), s)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	js, dir := newStore(t)
	s := tracker.NewState()
	require.NoError(t, tracker.SaveDefault(s, "pain", 2, time.Date(2023, 8, 20, 10, 0, 0, 0, time.UTC), "Europe/Oslo"))
	tracker.ResetDay(s, "2023-8-19", "stiffness")
	tracker.SaveManual(s, "2023-8-18", "fatigue", 4)

	require.NoError(t, js.Save(t.Context(), "alice", s))
	loaded, err := js.Load(t.Context(), "alice")

	require.NoError(t, err)
	assert.Equal(t, s, loaded)
	_, err = os.Stat(filepath.Join(dir, "users", "alice.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")
}

func TestLoadCorruptDocument(t *testing.T) {
	js, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users", "bob.json"), []byte("{not json"), 0o600))

	_, err := js.Load(t.Context(), "bob")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadFailed))
}

func TestInvalidUserIDs(t *testing.T) {
	js, _ := newStore(t)

	for _, id := range []string{"", ".", "..", "../x", `a\b`} {
		_, err := js.Load(t.Context(), id)
		assert.ErrorIs(t, err, ErrInvalidUserID, id)
		assert.ErrorIs(t, js.Save(t.Context(), id, tracker.NewState()), ErrInvalidUserID, id)
	}
}

func TestUsersAndHealth(t *testing.T) {
	js, dir := newStore(t)
	for _, u := range []string{"carol", "alice"} {
		require.NoError(t, js.Save(t.Context(), u, tracker.NewState()))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users", "notes.txt"), []byte("x"), 0o600))

	users, err := js.Users(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, users)

	h := js.Health(t.Context())
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 2, h.Users)
	assert.Positive(t, h.StorageSize)
	assert.NotNil(t, h.LastSaved)

	require.NoError(t, os.RemoveAll(dir))
	assert.Equal(t, "unhealthy", js.Health(t.Context()).Status)
}
