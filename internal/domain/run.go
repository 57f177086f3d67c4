package domain

import "time"

// ItemForecast is one item's row in a forecast run: a rounded quantity
// per production day plus provenance about how it was produced.
type ItemForecast struct {
	ItemID     string           `json:"itemId"`
	ItemName   string           `json:"itemName"`
	Quantities [DaysPerWeek]int `json:"quantities"`
	Total      int              `json:"total"`
	ModelUsed  bool             `json:"modelUsed"`
	ColdStart  bool             `json:"coldStart,omitempty"`
	Note       string           `json:"note,omitempty"`
}

// AlertReason classifies why a forecast cell was flagged.
type AlertReason string

const (
	AlertOutlier   AlertReason = "outlier"
	AlertColdStart AlertReason = "cold_start"
)

// Alert flags a forecast cell that deviates from recent history and
// deserves a human look before baking.
type Alert struct {
	ItemID   string      `json:"itemId"`
	ItemName string      `json:"itemName"`
	Day      Weekday     `json:"day"`
	Reason   AlertReason `json:"reason"`
	// Forecast and Mean describe the deviation for outlier alerts.
	Forecast float64 `json:"forecast,omitempty"`
	Mean     float64 `json:"mean,omitempty"`
	StdDev   float64 `json:"stdDev,omitempty"`
}

// ForecastRun is an immutable, versioned forecast for one production
// week. Re-running the same week creates a new run; earlier runs are
// never modified.
type ForecastRun struct {
	ID        string         `json:"id"`
	WeekStart time.Time      `json:"weekStart"`
	Alpha     float64        `json:"alpha"`
	UseModel  bool           `json:"useModel"`
	Items     []ItemForecast `json:"items"`
	Alerts    []Alert        `json:"alerts,omitempty"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TotalUnits sums the weekly totals across all items in the run.
func (r *ForecastRun) TotalUnits() int {
	total := 0
	for _, it := range r.Items {
		total += it.Total
	}
	return total
}
