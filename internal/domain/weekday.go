// Package domain defines the core types shared across the application.
// Types here carry no persistence or transport concerns.
package domain

import "time"

// Weekday indexes a production day. The bakery closes on Sundays, so the
// week runs Monday (0) through Saturday (5).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday

	// DaysPerWeek is the number of production days in a week.
	DaysPerWeek = 6
)

var weekdayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (w Weekday) String() string {
	if w < Monday || w > Saturday {
		return "Invalid"
	}
	return weekdayNames[w]
}

// Valid reports whether w is a production day.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Saturday
}

// WeekdayOf maps a calendar date to its production weekday. The second
// return is false for Sundays, which carry no production data.
func WeekdayOf(t time.Time) (Weekday, bool) {
	wd := t.Weekday()
	if wd == time.Sunday {
		return 0, false
	}
	return Weekday(wd - time.Monday), true
}

// WeekStart truncates t to the Monday of its week, at midnight UTC.
// Sundays belong to the week that ended the day before.
func WeekStart(t time.Time) time.Time {
	t = DateOnly(t)
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return t.AddDate(0, 0, -offset)
}

// DateOnly strips the time-of-day component, pinning the date to UTC
// midnight so dates compare and round-trip cleanly.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
