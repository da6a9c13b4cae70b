package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/daytrack/internal/eventstore"
	"git.home.luguber.info/inful/daytrack/internal/service"
	"git.home.luguber.info/inful/daytrack/internal/state"
	"git.home.luguber.info/inful/daytrack/internal/tracker"
)

// Scenario is a scripted sequence of tracker operations, each run at a
// fixed instant.
type Scenario struct {
	Name  string            `yaml:"name"`
	Users map[string]string `yaml:"users"`
	Steps []Step            `yaml:"steps"`
}

// Step is one operation. Fields unused by an op are ignored.
type Step struct {
	At      string   `yaml:"at"`
	Op      string   `yaml:"op"`
	User    string   `yaml:"user"`
	Day     string   `yaml:"day"`
	Metric  string   `yaml:"metric"`
	Metrics []string `yaml:"metrics"`
	Value   int      `yaml:"value"`
}

// Outcome is what gets compared against the golden file.
type Outcome struct {
	// Passes holds the number of writes made by each materialize or
	// materialize_all step, in order.
	Passes []int                      `json:"passes"`
	Users  map[string]json.RawMessage `json:"users"`
	Events map[string][]EventRecord   `json:"events"`
}

// EventRecord is a journaled event without its generated id and timestamp.
type EventRecord struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func loadScenario(t *testing.T, path string) Scenario {
	t.Helper()

	// #nosec G304 -- test utility reading scenario from testdata
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read scenario")

	var sc Scenario
	require.NoError(t, yaml.Unmarshal(data, &sc), "failed to parse scenario")
	require.NotEmpty(t, sc.Steps, "scenario has no steps")
	return sc
}

// runScenario plays sc against a fresh tracker backed by a JSON store in a
// temp dir and an in-memory journal.
func runScenario(t *testing.T, sc Scenario) Outcome {
	t.Helper()
	ctx := t.Context()

	store, err := state.NewJSONStore(t.TempDir())
	require.NoError(t, err)
	journal, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	var now time.Time
	svc, err := service.New(service.Options{
		Store:           store,
		Journal:         journal,
		Now:             func() time.Time { return now },
		DefaultTimezone: "UTC",
		Users:           sc.Users,
		Source:          "integration",
	})
	require.NoError(t, err)

	out := Outcome{Passes: []int{}, Users: map[string]json.RawMessage{}, Events: map[string][]EventRecord{}}
	for i, step := range sc.Steps {
		now, err = time.Parse(time.RFC3339, step.At)
		require.NoError(t, err, "step %d: bad instant", i)

		switch step.Op {
		case "default":
			err = svc.SaveDefault(ctx, step.User, step.Metric, step.Value, "")
		case "manual":
			err = svc.SaveManual(ctx, step.User, step.Day, step.Metric, step.Value)
		case "reset":
			err = svc.ResetDay(ctx, step.User, step.Day, step.Metrics...)
		case "materialize":
			var written []tracker.Materialization
			written, err = svc.Materialize(ctx, step.User, "")
			out.Passes = append(out.Passes, len(written))
		case "materialize_all":
			var sum service.Summary
			sum, err = svc.MaterializeAll(ctx)
			out.Passes = append(out.Passes, sum.Materialized)
		default:
			t.Fatalf("step %d: unknown op %q", i, step.Op)
		}
		require.NoError(t, err, "step %d (%s)", i, step.Op)
	}

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	for _, user := range users {
		snap, err := svc.Snapshot(ctx, user)
		require.NoError(t, err)
		data, err := json.Marshal(snap)
		require.NoError(t, err)
		out.Users[user] = data

		events, err := svc.History(ctx, user)
		require.NoError(t, err)
		records := make([]EventRecord, 0, len(events))
		for _, e := range events {
			records = append(records, EventRecord{Type: e.Type(), Payload: e.Payload()})
		}
		out.Events[user] = records
	}
	return out
}

// verifyGolden compares out against the golden JSON file, or rewrites the
// file when updateGolden is set.
func verifyGolden(t *testing.T, out Outcome, goldenPath string, updateGolden bool) {
	t.Helper()

	actualJSON, err := json.MarshalIndent(out, "", "  ")
	require.NoError(t, err, "failed to marshal outcome")

	if updateGolden {
		err = os.MkdirAll(filepath.Dir(goldenPath), 0o750)
		require.NoError(t, err, "failed to create golden directory")

		err = os.WriteFile(goldenPath, append(actualJSON, '\n'), 0o600)
		require.NoError(t, err, "failed to write golden file")

		t.Logf("Updated golden file: %s", goldenPath)
		return
	}

	// #nosec G304 -- test utility reading golden file from testdata
	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err, "failed to read golden file: %s", goldenPath)

	require.JSONEq(t, string(goldenData), string(actualJSON), "scenario outcome mismatch")
}

func runGoldenTest(t *testing.T, name string, updateGolden bool) {
	t.Helper()

	sc := loadScenario(t, filepath.Join("..", "testdata", "scenarios", name+".yaml"))
	out := runScenario(t, sc)
	verifyGolden(t, out, filepath.Join("..", "testdata", "golden", name+".golden.json"), updateGolden)
}
