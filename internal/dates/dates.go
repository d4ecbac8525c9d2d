// Package dates normalizes the date spellings found in SPARK and officer data.
package dates

import (
	"strings"
	"time"
)

// Layout is the canonical date form.
const Layout = "2006-01-02"

var isoLayouts = []string{
	Layout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z",
}

// tried after the slash formats
var fallbackLayouts = []string{
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
}

// Parse reads s in any supported layout. The result is a UTC midnight.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range isoLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return midnight(t), true
		}
	}
	if strings.Count(s, "/") == 2 {
		// DD/MM/YYYY first, MM/DD/YYYY only when the first reading is impossible.
		if t, err := time.Parse("2/1/2006", s); err == nil {
			return midnight(t), true
		}
		if t, err := time.Parse("1/2/2006", s); err == nil {
			return midnight(t), true
		}
	}
	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return midnight(t), true
		}
	}
	return time.Time{}, false
}

// Normalize returns s as YYYY-MM-DD, or "" when it cannot be read.
func Normalize(s string) string {
	t, ok := Parse(s)
	if !ok {
		return ""
	}
	return t.Format(Layout)
}

// Valid reports whether s is empty or readable as a date.
func Valid(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, ok := Parse(s)
	return ok
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
