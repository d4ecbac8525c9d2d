// Package status derives the badge labels shown next to profile records.
// Every function is pure; callers pass "today" explicitly.
package status

import (
	"fmt"
	"strings"
	"time"

	"karmasri/internal/dates"
)

const NA = "N/A"

// Training labels.
const (
	Upcoming = "Upcoming"
	Current  = "Current"
	Past     = "Past"
)

// Spouse sub-states.
const (
	SpouseCurrent  = "current"
	SpouseDivorced = "divorced"
	SpouseDeceased = "deceased"
)

// LessThanADay is the duration label for same-day ranges.
const LessThanADay = "Less than a day"

// Training reports whether a training with the given range is ahead of,
// around, or behind today.
func Training(from, to string, today time.Time) string {
	start, ok := dates.Parse(from)
	if !ok {
		return NA
	}
	end, ok := dates.Parse(to)
	if !ok {
		return NA
	}
	day := truncate(today)
	switch {
	case day.Before(start):
		return Upcoming
	case day.After(end):
		return Past
	default:
		return Current
	}
}

// Duration describes the length of a date range in whole months, or in days
// when shorter than a month.
func Duration(from, to string) string {
	start, ok := dates.Parse(from)
	if !ok {
		return NA
	}
	end, ok := dates.Parse(to)
	if !ok {
		return NA
	}
	if end.Before(start) {
		return NA
	}
	if months := monthsBetween(start, end); months >= 1 {
		return plural(months, "month")
	}
	if days := int(end.Sub(start).Hours() / 24); days >= 1 {
		return plural(days, "day")
	}
	return LessThanADay
}

// Spouse derives the spouse sub-state from the record's auxiliary fields.
// An explicit is_alive=false wins over a divorce marker.
func Spouse(v map[string]any) string {
	if alive, ok := boolValue(v["is_alive"]); ok && !alive {
		return SpouseDeceased
	}
	if str(v["removing_reason"]) == "1" {
		return SpouseDivorced
	}
	if _, ok := boolValue(v["is_alive"]); !ok && str(v["death_date"]) != "" {
		return SpouseDeceased
	}
	if str(v["divorce_date"]) != "" {
		return SpouseDivorced
	}
	return SpouseCurrent
}

// Age returns completed years and, for the first year of life, completed
// months.
func Age(dob string, today time.Time) (years, months int, ok bool) {
	born, ok := dates.Parse(dob)
	if !ok {
		return 0, 0, false
	}
	day := truncate(today)
	if day.Before(born) {
		return 0, 0, false
	}
	years = day.Year() - born.Year()
	if day.Month() < born.Month() || (day.Month() == born.Month() && day.Day() < born.Day()) {
		years--
	}
	if years >= 1 {
		return years, 0, true
	}
	return 0, monthsBetween(born, day), true
}

// AgeLabel formats Age for display.
func AgeLabel(dob string, today time.Time) string {
	years, months, ok := Age(dob, today)
	if !ok {
		return NA
	}
	if years >= 1 {
		return plural(years, "year")
	}
	return plural(months, "month")
}

func monthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	if end.Day() < start.Day() {
		months--
	}
	return months
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func boolValue(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
