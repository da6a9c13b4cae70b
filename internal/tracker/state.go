// Package tracker holds the default-application rules for daily metric values.
//
// Every operation takes the caller's *State explicitly and mutates it in
// place. The package keeps no state of its own and does no locking: callers
// serialize access to a given State.
package tracker

import (
	"maps"
	"slices"
	"sort"

	"git.home.luguber.info/inful/daytrack/internal/dayid"
)

// StandardMetrics is the default tracked set.
var StandardMetrics = []string{"pain", "stiffness", "fatigue"}

// State is the per-user metric state.
type State struct {
	// Values maps metric -> day identifier -> level. Levels are always
	// positive; a day without a value has no key.
	Values map[string]map[string]int `json:"values"`

	// DefaultSkipDates maps metric -> day identifier -> true for days
	// that were explicitly reset.
	DefaultSkipDates map[string]map[string]bool `json:"defaultSkipDates"`

	Settings Settings `json:"settings"`
}

// Settings holds the configured defaults per metric.
type Settings struct {
	DefaultLevels     map[string]int     `json:"defaultLevels"`
	DefaultStartDates map[string]*string `json:"defaultStartDates"`
	DefaultTimeZones  map[string]*string `json:"defaultTimeZones"`
}

// Entry is a single recorded day.
type Entry struct {
	Day   string `json:"day"`
	Level int    `json:"level"`
}

// Default describes an active default for one metric.
type Default struct {
	Level     int    `json:"level"`
	StartDate string `json:"startDate"`
	Timezone  string `json:"timezone"`
}

// NewState returns an empty state with zeroed settings.
func NewState() *State {
	s := &State{}
	s.ensure()
	return s
}

// ensure allocates any nil map, e.g. after decoding a partial document.
func (s *State) ensure() {
	if s.Values == nil {
		s.Values = make(map[string]map[string]int)
	}
	if s.DefaultSkipDates == nil {
		s.DefaultSkipDates = make(map[string]map[string]bool)
	}
	if s.Settings.DefaultLevels == nil {
		s.Settings.DefaultLevels = make(map[string]int)
	}
	if s.Settings.DefaultStartDates == nil {
		s.Settings.DefaultStartDates = make(map[string]*string)
	}
	if s.Settings.DefaultTimeZones == nil {
		s.Settings.DefaultTimeZones = make(map[string]*string)
	}
}

// Value returns the stored level for metric on day.
func (s *State) Value(metric, day string) (int, bool) {
	v, ok := s.Values[metric][day]
	return v, ok && v > 0
}

// IsSkipped reports whether day was explicitly reset for metric.
func (s *State) IsSkipped(metric, day string) bool {
	return s.DefaultSkipDates[metric][day]
}

// ActiveDefault returns the configured default for metric, if one is active.
func (s *State) ActiveDefault(metric string) (Default, bool) {
	level := s.Settings.DefaultLevels[metric]
	start := s.Settings.DefaultStartDates[metric]
	if level <= 0 || start == nil {
		return Default{}, false
	}
	d := Default{Level: level, StartDate: *start, Timezone: dayid.UTC}
	if tz := s.Settings.DefaultTimeZones[metric]; tz != nil {
		d.Timezone = *tz
	}
	return d, true
}

// Series returns the recorded entries for metric in chronological order.
// Keys that do not parse as day identifiers sort last.
func (s *State) Series(metric string) []Entry {
	days := s.Values[metric]
	out := make([]Entry, 0, len(days))
	for day, level := range days {
		if level > 0 {
			out = append(out, Entry{Day: day, Level: level})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, erri := dayid.Parse(out[i].Day)
		dj, errj := dayid.Parse(out[j].Day)
		switch {
		case erri != nil && errj != nil:
			return out[i].Day < out[j].Day
		case erri != nil:
			return false
		case errj != nil:
			return true
		default:
			return di.Before(dj)
		}
	})
	return out
}

// Metrics returns every metric the state knows about together with the
// standard set, sorted.
func (s *State) Metrics() []string {
	set := make(map[string]struct{}, len(StandardMetrics))
	for _, m := range StandardMetrics {
		set[m] = struct{}{}
	}
	for m := range s.Settings.DefaultLevels {
		set[m] = struct{}{}
	}
	for m := range s.Values {
		set[m] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := NewState()
	for m, days := range s.Values {
		c.Values[m] = maps.Clone(days)
	}
	for m, days := range s.DefaultSkipDates {
		c.DefaultSkipDates[m] = maps.Clone(days)
	}
	maps.Copy(c.Settings.DefaultLevels, s.Settings.DefaultLevels)
	for m, v := range s.Settings.DefaultStartDates {
		c.Settings.DefaultStartDates[m] = clonePtr(v)
	}
	for m, v := range s.Settings.DefaultTimeZones {
		c.Settings.DefaultTimeZones[m] = clonePtr(v)
	}
	return c
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *State) set(metric, day string, level int) {
	if level <= 0 {
		s.clear(metric, day)
		return
	}
	if s.Values[metric] == nil {
		s.Values[metric] = make(map[string]int)
	}
	s.Values[metric][day] = level
}

func (s *State) clear(metric, day string) {
	days := s.Values[metric]
	if days == nil {
		return
	}
	delete(days, day)
	if len(days) == 0 {
		delete(s.Values, metric)
	}
}
