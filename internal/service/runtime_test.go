package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/daytrack/internal/config"
	"git.home.luguber.info/inful/daytrack/internal/notify"
)

func TestOpenFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(`version: "1"
tracker:
  default_timezone: Europe/Oslo
users:
  - id: alice
    timezone: Asia/Tokyo
  - id: bob
storage:
  data_dir: ` + dir + `
`))
	require.NoError(t, err)

	rt, err := Open(cfg, nil, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.IsType(t, notify.NoopPublisher{}, rt.Publisher)
	assert.Equal(t, "Asia/Tokyo", rt.Tracker.Timezone("alice"))
	assert.Equal(t, "Europe/Oslo", rt.Tracker.Timezone("bob"))
	assert.Equal(t, "Europe/Oslo", rt.Tracker.Timezone("carol"))

	require.NoError(t, rt.Tracker.SaveManual(t.Context(), "alice", "2023-8-20", "pain", 2))
	_, err = os.Stat(filepath.Join(dir, "users", "alice.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)

	events, err := rt.Tracker.History(t.Context(), "alice")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "test", events[0].Metadata()["source"])
}
