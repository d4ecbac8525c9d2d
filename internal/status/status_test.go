package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTraining(t *testing.T) {
	today := day("2024-06-15")
	tests := []struct {
		from, to string
		want     string
	}{
		{"2024-01-01", "2024-12-31", Current},
		{"2025-01-01", "2025-12-31", Upcoming},
		{"2020-01-01", "2020-12-31", Past},
		{"2024-06-15", "2024-06-15", Current},
		{"2024-06-16", "2024-06-20", Upcoming},
		{"2024-06-01", "2024-06-14", Past},
		{"", "2024-12-31", NA},
		{"2024-01-01", "soon", NA},
	}
	for _, tt := range tests {
		t.Run(tt.from+"_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, Training(tt.from, tt.to, today))
		})
	}
}

func TestTrainingIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, 6, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, Current, Training("2024-06-01", "2024-06-14", late))
}

func TestDuration(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"2024-01-01", "2024-01-01", LessThanADay},
		{"2024-01-01", "2024-02-01", "1 month"},
		{"2024-01-31", "2024-03-01", "1 month"},
		{"2024-01-01", "2023-12-01", NA},
		{"2024-01-01", "2024-01-02", "1 day"},
		{"2024-02-01", "2024-02-29", "28 days"},
		{"2023-01-15", "2024-01-15", "12 months"},
		{"2024-01-15", "2024-03-14", "1 month"},
		{"bad", "2024-01-01", NA},
	}
	for _, tt := range tests {
		t.Run(tt.from+"_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, Duration(tt.from, tt.to))
		})
	}
}

func TestSpouse(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"plain", map[string]any{"name": "A"}, SpouseCurrent},
		{"not alive", map[string]any{"is_alive": false}, SpouseDeceased},
		{"not alive string", map[string]any{"is_alive": "false"}, SpouseDeceased},
		{"divorced", map[string]any{"removing_reason": "1"}, SpouseDivorced},
		{"deceased beats divorced", map[string]any{"is_alive": false, "removing_reason": "1"}, SpouseDeceased},
		{"death date only", map[string]any{"death_date": "2020-01-01"}, SpouseDeceased},
		{"alive overrides death date", map[string]any{"is_alive": true, "death_date": "2020-01-01"}, SpouseCurrent},
		{"divorce date", map[string]any{"divorce_date": "2019-05-01"}, SpouseDivorced},
		{"other reason", map[string]any{"removing_reason": "2"}, SpouseCurrent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Spouse(tt.in))
		})
	}
}

func TestAge(t *testing.T) {
	tests := []struct {
		name, dob, today string
		want             string
	}{
		{"birthday today", "1990-06-15", "2024-06-15", "34 years"},
		{"day before birthday", "1990-06-16", "2024-06-15", "33 years"},
		{"exact first year", "2023-06-15", "2024-06-15", "1 year"},
		{"infant", "2024-01-20", "2024-06-15", "4 months"},
		{"newborn", "2024-06-10", "2024-06-15", "0 months"},
		{"leap day before birthday", "2020-02-29", "2021-02-28", "11 months"},
		{"leap day after", "2020-02-29", "2021-03-01", "1 year"},
		{"leap to leap", "2020-02-29", "2024-02-29", "4 years"},
		{"future", "2025-01-01", "2024-06-15", NA},
		{"invalid", "", "2024-06-15", NA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeLabel(tt.dob, day(tt.today)))
		})
	}
}
