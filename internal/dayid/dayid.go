// Package dayid resolves and compares calendar-day identifiers.
//
// A day identifier is the wall-clock date of an instant in a given timezone,
// formatted as YYYY-M-D without zero padding (for example "2023-8-20").
// Identifiers are never compared as strings: "2023-9-1" sorts after
// "2023-10-1" lexically, so ordering always goes through Parse and Compare.
package dayid

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // identifiers must resolve on hosts without zoneinfo

	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
)

// UTC is the timezone used when none is given.
const UTC = "UTC"

// Date is a calendar date without a timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as a non-padded day identifier.
func (d Date) String() string {
	return fmt.Sprintf("%d-%d-%d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// AddDays returns the date n calendar days away from d.
func (d Date) AddDays(n int) Date {
	return FromTime(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

var locations sync.Map // timezone -> *time.Location

// LoadLocation loads a timezone, treating the empty string as UTC. Failures
// are classified as timezone errors and carry the offending identifier.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		timezone = UTC
	}
	if loc, ok := locations.Load(timezone); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTimezone, fmt.Sprintf("unknown timezone %q", timezone)).
			UserAction().
			ForTimezone(timezone).
			Build()
	}
	locations.Store(timezone, loc)
	return loc, nil
}

// ResolveDate returns the calendar date of instant as seen in timezone.
func ResolveDate(timezone string, instant time.Time) (Date, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return Date{}, err
	}
	return FromTime(instant.In(loc)), nil
}

// Resolve returns the day identifier of instant as seen in timezone.
func Resolve(timezone string, instant time.Time) (string, error) {
	d, err := ResolveDate(timezone, instant)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Parse reads a day identifier. Zero-padded components ("2023-08-05") are
// accepted; the date itself must exist on the calendar.
func Parse(id string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(id), "-")
	if len(parts) != 3 {
		return Date{}, invalid(id)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return Date{}, invalid(id)
		}
		nums[i] = n
	}
	d := Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}
	if d.Month > time.December || d.AddDays(0) != d {
		return Date{}, invalid(id)
	}
	return d, nil
}

// Normalize parses id and returns it in canonical non-padded form.
func Normalize(id string) (string, error) {
	d, err := Parse(id)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Compare orders two day identifiers chronologically.
func Compare(a, b string) (int, error) {
	da, err := Parse(a)
	if err != nil {
		return 0, err
	}
	db, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return da.Compare(db), nil
}

func invalid(id string) error {
	return errors.ValidationError(fmt.Sprintf("invalid day identifier %q", id)).
		ForDay(id).
		Build()
}
