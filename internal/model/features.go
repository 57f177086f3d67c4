// Package model trains and applies per-item ridge regression models.
// A model only exists for items with enough labeled history; everything
// degrades to the weekday baseline when it doesn't.
package model

import (
	"math"
	"sort"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
)

// FeatureNames pins the feature column order. Serialized weights are
// only meaningful against this exact ordering, so it is stored with
// every model and verified on load.
var FeatureNames = []string{
	"max_temp", "rain_mm",
	"last4_same_wd", "last8_same_wd",
	"is_holiday",
	"month_sin", "month_cos",
	"wd_1", "wd_2", "wd_3", "wd_4", "wd_5", "wd_6",
}

// Signals carries the exogenous covariates for feature building, keyed
// by UTC-midnight date. Missing entries produce imputed features, never
// errors.
type Signals struct {
	Weather  map[time.Time]*domain.WeatherDay
	Holidays map[time.Time]bool
}

// rolling same-weekday feature windows, shifted one step so a row never
// sees its own target.
const (
	last4Window, last4MinPeriods = 4, 2
	last8Window, last8MinPeriods = 8, 3
)

// buildTraining turns an item's history into a labeled design matrix.
// Sunday rows are dropped, rows come out in date order, and missing
// weather or short rolling windows are left as NaN for the solver's
// median imputation.
func buildTraining(sales []*domain.SaleRecord, sig Signals) (x [][]float64, y []float64) {
	ordered := make([]*domain.SaleRecord, len(sales))
	copy(ordered, sales)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	var recent [domain.DaysPerWeek][]float64
	for _, s := range ordered {
		day, ok := domain.WeekdayOf(s.Date)
		if !ok {
			continue
		}
		row := featureRow(s.Date, day, recent[day], sig)
		recent[day] = append(recent[day], float64(s.Quantity))

		x = append(x, row)
		y = append(y, float64(s.Quantity))
	}
	return x, y
}

// buildFutureRow builds the feature row for one upcoming production
// day. prior is the item's historical quantities for that weekday in
// date order; the rolling features come from its tail, the same
// windows the training rows saw.
func buildFutureRow(date time.Time, day domain.Weekday, prior []float64, sig Signals) []float64 {
	return featureRow(date, day, prior, sig)
}

func featureRow(date time.Time, day domain.Weekday, prior []float64, sig Signals) []float64 {
	row := make([]float64, len(FeatureNames))

	maxTemp, rain := math.NaN(), math.NaN()
	if w := sig.Weather[domain.DateOnly(date)]; w != nil {
		if w.MaxTemp != nil {
			maxTemp = *w.MaxTemp
		}
		if w.RainMM != nil {
			rain = *w.RainMM
		}
	}
	row[0] = maxTemp
	row[1] = rain
	row[2] = rollingMean(prior, last4Window, last4MinPeriods)
	row[3] = rollingMean(prior, last8Window, last8MinPeriods)
	if sig.Holidays[domain.DateOnly(date)] {
		row[4] = 1
	}

	m := float64(date.Month())
	row[5] = math.Sin(2 * math.Pi * m / 12)
	row[6] = math.Cos(2 * math.Pi * m / 12)

	// wd_1..wd_6 one-hot, Monday through Saturday.
	row[7+int(day)] = 1
	return row
}

// rollingMean averages the last window values, NaN when fewer than
// minPeriods exist.
func rollingMean(vals []float64, window, minPeriods int) float64 {
	if len(vals) > window {
		vals = vals[len(vals)-window:]
	}
	if len(vals) < minPeriods {
		return math.NaN()
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
