package forecast

import (
	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
)

// Neutral anchors: weather at these values leaves the forecast alone.
const (
	neutralTemp = 20.0 // °C
	neutralRain = 1.0  // mm
)

// Adjuster composes weather and calendar signals into one bounded
// multiplier per day. Signals compose multiplicatively and the result
// is clamped so a single bad feed value cannot dominate a forecast.
type Adjuster struct {
	coefTemp float64
	coefRain float64
	clampMin float64
	clampMax float64
}

// NewAdjuster builds an adjuster from the forecast configuration.
func NewAdjuster(cfg config.ForecastConfig) *Adjuster {
	return &Adjuster{
		coefTemp: cfg.CoefTemp,
		coefRain: cfg.CoefRain,
		clampMin: cfg.ClampMin,
		clampMax: cfg.ClampMax,
	}
}

// Multiplier returns the adjustment factor for one day. A nil weather
// day, missing weather fields, or no events each contribute a neutral
// 1.0; absent signals never fail a forecast.
func (a *Adjuster) Multiplier(weather *domain.WeatherDay, events []domain.CalendarEvent) float64 {
	m := 1.0
	if weather != nil {
		if weather.MaxTemp != nil {
			m *= 1 + a.coefTemp*(*weather.MaxTemp-neutralTemp)/10
		}
		if weather.RainMM != nil {
			m *= 1 + a.coefRain*(*weather.RainMM-neutralRain)/10
		}
	}
	for _, ev := range events {
		if ev.Multiplier > 0 {
			m *= ev.Multiplier
		}
	}
	return a.clamp(m)
}

func (a *Adjuster) clamp(m float64) float64 {
	if m < a.clampMin {
		return a.clampMin
	}
	if m > a.clampMax {
		return a.clampMax
	}
	return m
}
