package tracker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesIsChronological(t *testing.T) {
	s := NewState()
	for _, day := range []string{"2023-10-1", "2023-9-30", "2023-9-1", "2022-12-31"} {
		SaveManual(s, day, "pain", 1)
	}

	var days []string
	for _, e := range s.Series("pain") {
		days = append(days, e.Day)
	}
	assert.Equal(t, []string{"2022-12-31", "2023-9-1", "2023-9-30", "2023-10-1"}, days)
}

func TestMetricsIncludesStandardSet(t *testing.T) {
	s := NewState()
	SaveManual(s, "2023-8-20", "mood", 2)

	assert.Equal(t, []string{"fatigue", "mood", "pain", "stiffness"}, s.Metrics())
}

func TestStateDecodesPartialDocument(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"values":{"pain":{"2023-8-20":2}}}`), &s))

	ResetDay(&s, "2023-8-20", "pain")
	require.NoError(t, SaveDefault(&s, "stiffness", 1, at(21, 9), "UTC"))

	assert.True(t, s.IsSkipped("pain", "2023-8-20"))
	assert.Equal(t, 1, value(t, &s, "stiffness", "2023-8-21"))
}

func TestStateJSONFieldNames(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "Europe/Oslo"))
	ResetDay(s, "2023-8-19", "pain")

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "defaultSkipDates")
	settings, ok := doc["settings"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, settings, "defaultLevels")
	assert.Contains(t, settings, "defaultStartDates")
	assert.Contains(t, settings, "defaultTimeZones")
}

func TestCloneIsDeep(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))
	c := s.Clone()

	SaveManual(c, "2023-8-20", "pain", 4)
	*c.Settings.DefaultStartDates["pain"] = "2023-1-1"

	assert.Equal(t, 1, value(t, s, "pain", "2023-8-20"))
	assert.Equal(t, "2023-8-20", *s.Settings.DefaultStartDates["pain"])
}
