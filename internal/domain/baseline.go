package domain

import "time"

// WeekdayBaseline is the recency-weighted demand estimate for one item on
// one production weekday.
type WeekdayBaseline struct {
	ItemID string  `json:"itemId"`
	Day    Weekday `json:"day"`
	// Estimate is the decayed weighted mean of recent same-weekday sales.
	Estimate float64 `json:"estimate"`
	// Samples is how many historical instances fed the estimate.
	Samples int `json:"samples"`
	// Fallback is true when fewer than the minimum same-weekday
	// instances existed and the item-wide mean was used instead.
	Fallback bool `json:"fallback,omitempty"`
}

// WeekdayStats carries the unweighted mean and standard deviation of the
// trailing same-weekday window, used for outlier alerting.
type WeekdayStats struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stdDev"`
	Samples int     `json:"samples"`
}

// ItemModel is a persisted per-item regression model. Parameters holds
// the serialized weights; FeatureSchema pins the column order they apply
// to. Superseded models are replaced in place, keyed by item.
type ItemModel struct {
	ItemID     string   `json:"itemId"`
	Algorithm  string   `json:"algorithm"`
	Parameters []byte   `json:"-"`
	Features   []string `json:"features"`
	Samples    int      `json:"samples"`
	// CVError is the rolling-origin cross-validation MAPE, nil when the
	// history was too short to validate.
	CVError       *float64  `json:"cvError,omitempty"`
	LowConfidence bool      `json:"lowConfidence"`
	TrainedAt     time.Time `json:"trainedAt"`
}
