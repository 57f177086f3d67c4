package domain

import "time"

// WeatherDay is one day of forecast weather supplied by an upstream feed.
// Missing fields leave the corresponding adjustment neutral.
type WeatherDay struct {
	Date    time.Time `json:"date"`
	MaxTemp *float64  `json:"maxTemp,omitempty"`
	RainMM  *float64  `json:"rainMm,omitempty"`
	Source  string    `json:"source,omitempty"`
}

// EventKind distinguishes calendar signal types.
type EventKind string

const (
	EventHoliday EventKind = "holiday"
	EventLocal   EventKind = "local"
)

// CalendarEvent is a dated demand signal such as a public holiday or a
// local market day. Multiplier scales the day's forecast before clamping.
type CalendarEvent struct {
	Date       time.Time `json:"date"`
	Kind       EventKind `json:"kind"`
	Name       string    `json:"name"`
	Multiplier float64   `json:"multiplier"`
}
