package domain

import (
	"testing"
	"time"
)

func TestWeekdayOf(t *testing.T) {
	tests := []struct {
		date string
		want Weekday
		ok   bool
	}{
		{"2026-08-24", Monday, true},
		{"2026-08-26", Wednesday, true},
		{"2026-08-29", Saturday, true},
		{"2026-08-30", 0, false}, // Sunday
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.date)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.date, err)
		}
		got, ok := WeekdayOf(d)
		if ok != tt.ok {
			t.Errorf("WeekdayOf(%s) ok = %v, want %v", tt.date, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Errorf("WeekdayOf(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2026-08-24", "2026-08-24"}, // Monday maps to itself
		{"2026-08-26", "2026-08-24"},
		{"2026-08-29", "2026-08-24"},
		{"2026-08-30", "2026-08-24"}, // Sunday belongs to the week it closes
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.date)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.date, err)
		}
		if got := FormatDate(WeekStart(d)); got != tt.want {
			t.Errorf("WeekStart(%s) = %s, want %s", tt.date, got, tt.want)
		}
	}
}

func TestWeekStartIgnoresTimeOfDay(t *testing.T) {
	d := time.Date(2026, 8, 26, 23, 59, 0, 0, time.UTC)
	if got := FormatDate(WeekStart(d)); got != "2026-08-24" {
		t.Errorf("WeekStart = %s, want 2026-08-24", got)
	}
}

func TestNormalizeItemName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sourdough Loaf", "sourdough loaf"},
		{"  SOURDOUGH   LOAF  ", "sourdough loaf"},
		{"Almond\tCroissant", "almond croissant"},
	}
	for _, tt := range tests {
		if got := NormalizeItemName(tt.in); got != tt.want {
			t.Errorf("NormalizeItemName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestForecastRunTotalUnits(t *testing.T) {
	run := &ForecastRun{Items: []ItemForecast{{Total: 40}, {Total: 12}}}
	if got := run.TotalUnits(); got != 52 {
		t.Errorf("TotalUnits = %d, want 52", got)
	}
}
