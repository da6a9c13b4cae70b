package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

func at(day int, hour int) time.Time {
	return time.Date(2023, 8, day, hour, 0, 0, 0, time.UTC)
}

func value(t *testing.T, s *State, metric, day string) int {
	t.Helper()
	v, _ := s.Value(metric, day)
	return v
}

func TestSaveDefault_ActivatesToday(t *testing.T) {
	s := NewState()

	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))

	assert.Equal(t, 1, value(t, s, "pain", "2023-8-20"))
	d, ok := s.ActiveDefault("pain")
	require.True(t, ok)
	assert.Equal(t, Default{Level: 1, StartDate: "2023-8-20", Timezone: "UTC"}, d)
}

func TestSaveDefault_KeepsExistingValue(t *testing.T) {
	s := NewState()
	SaveManual(s, "2023-8-20", "pain", 4)

	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))

	assert.Equal(t, 4, value(t, s, "pain", "2023-8-20"))
	assert.Equal(t, 1, s.Settings.DefaultLevels["pain"])
}

func TestSaveDefault_WritesTodayDespiteSkipFlag(t *testing.T) {
	s := NewState()
	ResetDay(s, "2023-8-20", "pain")

	require.NoError(t, SaveDefault(s, "pain", 2, at(20, 10), "UTC"))

	assert.Equal(t, 2, value(t, s, "pain", "2023-8-20"))
	assert.True(t, s.IsSkipped("pain", "2023-8-20"), "explicit save does not clear the skip flag")
}

func TestSaveDefault_UnknownTimezoneLeavesStateUntouched(t *testing.T) {
	s := NewState()
	before := s.Clone()

	err := SaveDefault(s, "pain", 1, at(20, 10), "Nowhere/Land")

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTimezone))
	assert.Equal(t, before, s)
}

func TestSaveDefault_Deactivation(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(s *State)
		wantToday int
	}{
		{
			name:      "removes today when it equals the previous default",
			setup:     func(s *State) {},
			wantToday: 0,
		},
		{
			name:      "keeps a manual value that differs from the previous default",
			setup:     func(s *State) { SaveManual(s, "2023-8-20", "pain", 3) },
			wantToday: 3,
		},
		{
			name: "removes a matching value even when the day was reset and refilled",
			setup: func(s *State) {
				ResetDay(s, "2023-8-20", "pain")
				SaveManual(s, "2023-8-20", "pain", 2)
			},
			wantToday: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			require.NoError(t, SaveDefault(s, "pain", 2, at(20, 8), "UTC"))
			tt.setup(s)

			require.NoError(t, SaveDefault(s, "pain", 0, at(20, 18), "UTC"))

			assert.Equal(t, tt.wantToday, value(t, s, "pain", "2023-8-20"))
			assert.Nil(t, s.Settings.DefaultStartDates["pain"])
			assert.Nil(t, s.Settings.DefaultTimeZones["pain"])
			_, active := s.ActiveDefault("pain")
			assert.False(t, active)
		})
	}
}

func TestSaveDefault_DeactivationComparesWithPreviousLevel(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 2, at(19, 8), "UTC"))
	require.NoError(t, SaveDefault(s, "pain", 3, at(20, 8), "UTC"))
	// Activation on day 20 found no value and wrote 3.
	require.Equal(t, 3, value(t, s, "pain", "2023-8-20"))

	require.NoError(t, SaveDefault(s, "pain", 0, at(20, 9), "UTC"))

	assert.Equal(t, 0, value(t, s, "pain", "2023-8-20"))
	assert.Equal(t, 2, value(t, s, "pain", "2023-8-19"), "earlier days are never rewritten")
}

func TestSaveDefault_DeactivateWithoutActiveDefault(t *testing.T) {
	s := NewState()
	SaveManual(s, "2023-8-20", "pain", 1)

	require.NoError(t, SaveDefault(s, "pain", -1, at(20, 10), "UTC"))

	assert.Equal(t, 1, value(t, s, "pain", "2023-8-20"))
}

func TestDailyMaterialization_AppliesActiveDefault(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))
	require.NoError(t, SaveDefault(s, "stiffness", 2, at(20, 10), "UTC"))

	written, err := DailyMaterialization(s, at(21, 6), "UTC")

	require.NoError(t, err)
	assert.Equal(t, []Materialization{
		{Metric: "pain", Day: "2023-8-21", Level: 1},
		{Metric: "stiffness", Day: "2023-8-21", Level: 2},
	}, written)
	assert.Equal(t, 1, value(t, s, "pain", "2023-8-21"))
	assert.Equal(t, 2, value(t, s, "stiffness", "2023-8-21"))
	assert.Equal(t, 0, value(t, s, "fatigue", "2023-8-21"))
}

func TestDailyMaterialization_Idempotent(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))

	_, err := DailyMaterialization(s, at(21, 6), "UTC")
	require.NoError(t, err)
	once := s.Clone()

	written, err := DailyMaterialization(s, at(21, 6), "UTC")
	require.NoError(t, err)

	assert.Empty(t, written)
	assert.Equal(t, once, s)
}

func TestDailyMaterialization_NoBackfillBeforeStart(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))

	written, err := DailyMaterialization(s, at(19, 10), "UTC")

	require.NoError(t, err)
	assert.Empty(t, written)
	_, ok := s.Value("pain", "2023-8-19")
	assert.False(t, ok)
}

func TestDailyMaterialization_StartDateComparedChronologically(t *testing.T) {
	s := NewState()
	start := "2023-9-30"
	tz := "UTC"
	s.Settings.DefaultLevels["pain"] = 2
	s.Settings.DefaultStartDates["pain"] = &start
	s.Settings.DefaultTimeZones["pain"] = &tz

	// "2023-10-1" < "2023-9-30" as strings; as dates it is the day after.
	written, err := DailyMaterialization(s, time.Date(2023, 10, 1, 9, 0, 0, 0, time.UTC), "UTC")

	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, 2, value(t, s, "pain", "2023-10-1"))
}

func TestDailyMaterialization_ManualValueWins(t *testing.T) {
	// S6
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))
	SaveManual(s, "2023-8-20", "pain", 3)

	written, err := DailyMaterialization(s, at(20, 23), "UTC")

	require.NoError(t, err)
	assert.Empty(t, written)
	assert.Equal(t, 3, value(t, s, "pain", "2023-8-20"))
}

func TestDailyMaterialization_ManualZeroIsRefilled(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))
	SaveManual(s, "2023-8-20", "pain", 0)
	require.Equal(t, 0, value(t, s, "pain", "2023-8-20"))

	_, err := DailyMaterialization(s, at(20, 23), "UTC")

	require.NoError(t, err)
	assert.Equal(t, 1, value(t, s, "pain", "2023-8-20"))
}

func TestResetThenMaterialize(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))

	ResetDay(s, "2023-8-21", "pain")
	for _, hour := range []int{0, 6, 23} {
		_, err := DailyMaterialization(s, at(21, hour), "UTC")
		require.NoError(t, err)
	}
	_, ok := s.Value("pain", "2023-8-21")
	assert.False(t, ok, "reset day stays empty")

	_, err := DailyMaterialization(s, at(22, 1), "UTC")
	require.NoError(t, err)
	assert.Equal(t, 1, value(t, s, "pain", "2023-8-22"), "reset does not carry over to the next day")
}

// A reset day stays empty when the default is later turned off and back on.
func TestResetDay_SurvivesDeactivateAndReactivate(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(10, 10), "UTC"))
	_, err := DailyMaterialization(s, at(15, 10), "UTC")
	require.NoError(t, err)
	require.Equal(t, 1, value(t, s, "pain", "2023-8-15"))

	ResetDay(s, "2023-8-15", "pain")
	require.NoError(t, SaveDefault(s, "pain", 0, at(16, 10), "UTC"))
	require.NoError(t, SaveDefault(s, "pain", 2, at(20, 10), "UTC"))
	_, err = DailyMaterialization(s, at(21, 10), "UTC")
	require.NoError(t, err)

	_, ok := s.Value("pain", "2023-8-15")
	assert.False(t, ok)
	assert.Equal(t, 2, value(t, s, "pain", "2023-8-20"))
	assert.Equal(t, 2, value(t, s, "pain", "2023-8-21"))
}

// Activating a new default never backfills an earlier reset day.
func TestResetDay_NoBackfillOnLaterActivation(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(15, 10), "UTC"))
	ResetDay(s, "2023-8-15", "pain")

	require.NoError(t, SaveDefault(s, "pain", 2, at(20, 10), "UTC"))
	_, ok := s.Value("pain", "2023-8-15")
	assert.False(t, ok)
	assert.Equal(t, 2, value(t, s, "pain", "2023-8-20"))

	written, err := DailyMaterialization(s, time.Date(2023, 8, 21, 0, 2, 0, 0, time.UTC), "UTC")
	require.NoError(t, err)
	assert.Equal(t, []Materialization{{Metric: "pain", Day: "2023-8-21", Level: 2}}, written)
	assert.Equal(t, 2, value(t, s, "pain", "2023-8-21"))
	_, ok = s.Value("pain", "2023-8-15")
	assert.False(t, ok)
}

// Saving the default again on a reset day fills it even though the
// scheduled pass skipped it.
func TestResetDay_ExplicitSaveRefillsDay(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))
	ResetDay(s, "2023-8-20", "pain")

	written, err := DailyMaterialization(s, at(20, 10), "UTC")
	require.NoError(t, err)
	assert.Empty(t, written)
	_, ok := s.Value("pain", "2023-8-20")
	require.False(t, ok)

	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))
	assert.Equal(t, 1, value(t, s, "pain", "2023-8-20"))
	assert.True(t, s.IsSkipped("pain", "2023-8-20"))
}

func TestResetDay_DefaultsToStandardMetrics(t *testing.T) {
	s := NewState()
	for _, m := range StandardMetrics {
		SaveManual(s, "2023-8-20", m, 2)
	}
	SaveManual(s, "2023-8-20", "mood", 4)

	ResetDay(s, "2023-8-20")

	for _, m := range StandardMetrics {
		_, ok := s.Value(m, "2023-8-20")
		assert.False(t, ok, m)
		assert.True(t, s.IsSkipped(m, "2023-8-20"), m)
	}
	assert.Equal(t, 4, value(t, s, "mood", "2023-8-20"))
	assert.False(t, s.IsSkipped("mood", "2023-8-20"))
}

func TestSaveManual(t *testing.T) {
	s := NewState()
	ResetDay(s, "2023-8-20", "pain")

	SaveManual(s, "2023-8-20", "pain", 5)
	assert.Equal(t, 5, value(t, s, "pain", "2023-8-20"))
	assert.True(t, s.IsSkipped("pain", "2023-8-20"))

	SaveManual(s, "2023-8-20", "pain", -2)
	_, ok := s.Value("pain", "2023-8-20")
	assert.False(t, ok)
	assert.NotContains(t, s.Values, "pain", "zero is never stored")
}

func TestTimezoneCorrectness(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 10), "UTC"))

	// 02:00 UTC on the 21st is still the 20th in New York.
	written, err := DailyMaterialization(s, at(21, 2), "America/New_York")
	require.NoError(t, err)
	assert.Empty(t, written)
	_, ok := s.Value("pain", "2023-8-21")
	assert.False(t, ok)

	// The same instant is already the 21st in Tokyo.
	written, err = DailyMaterialization(s, at(21, 2), "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, []Materialization{{Metric: "pain", Day: "2023-8-21", Level: 1}}, written)
}

func TestTimezoneCorrectness_StartInAheadZone(t *testing.T) {
	s := NewState()
	// 20:00 UTC on the 20th is the 21st in Tokyo.
	require.NoError(t, SaveDefault(s, "pain", 1, at(20, 20), "Asia/Tokyo"))
	assert.Equal(t, "2023-8-21", *s.Settings.DefaultStartDates["pain"])
	assert.Equal(t, "Asia/Tokyo", *s.Settings.DefaultTimeZones["pain"])

	written, err := DailyMaterialization(s, at(20, 20), "America/New_York")
	require.NoError(t, err)
	assert.Empty(t, written, "the default is not active yet on the 20th")
}

func TestDailyMaterialization_CorruptStartDate(t *testing.T) {
	s := NewState()
	bad := "someday"
	s.Settings.DefaultLevels["pain"] = 1
	s.Settings.DefaultStartDates["pain"] = &bad
	require.NoError(t, SaveDefault(s, "stiffness", 2, at(20, 10), "UTC"))

	written, err := DailyMaterialization(s, at(21, 10), "UTC")

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, []Materialization{{Metric: "stiffness", Day: "2023-8-21", Level: 2}}, written)
}

func TestDefaultAppliesForEveryEligibleMetric(t *testing.T) {
	s := NewState()
	require.NoError(t, SaveDefault(s, "pain", 1, at(1, 10), "UTC"))
	require.NoError(t, SaveDefault(s, "stiffness", 3, at(5, 10), "UTC"))
	require.NoError(t, SaveDefault(s, "fatigue", 2, at(25, 10), "UTC"))
	ResetDay(s, "2023-8-10", "stiffness")

	for day := 2; day <= 12; day++ {
		_, err := DailyMaterialization(s, at(day, 12), "UTC")
		require.NoError(t, err)
	}

	assert.Len(t, s.Series("pain"), 12)
	assert.Len(t, s.Series("stiffness"), 7, "days 5-12 minus the reset day 10")
	assert.Equal(t, []Entry{{Day: "2023-8-25", Level: 2}}, s.Series("fatigue"), "only the activation day itself")
}
