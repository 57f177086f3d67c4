// Package forecast holds the pure forecasting math: recency-weighted
// weekday baselines, bounded exogenous adjustments, and the blend and
// post-processing that turn estimates into an order sheet. Everything
// here is deterministic and store-free; services feed it history and
// persist what comes out.
package forecast

import (
	"math"
	"sort"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
)

// Estimator computes per-weekday demand baselines from an item's sales
// history.
type Estimator struct {
	decay      float64
	window     int
	minSamples int
}

// NewEstimator builds an estimator from the forecast configuration.
func NewEstimator(cfg config.ForecastConfig) *Estimator {
	return &Estimator{
		decay:      cfg.Decay,
		window:     cfg.Window,
		minSamples: cfg.MinWeekdaySamples,
	}
}

// Baselines computes the weekday baselines for one item. Each weekday
// takes the decayed weighted mean of its most recent window of
// observations; weekdays with too few observations fall back to the
// item-wide weighted mean, and an item with no history at all gets
// zeros with Samples 0 so callers can flag the cold start.
func (e *Estimator) Baselines(itemID string, sales []*domain.SaleRecord) [domain.DaysPerWeek]domain.WeekdayBaseline {
	byDay := groupByWeekday(sales)

	// Item-wide fallback over the most recent observations of any day.
	all := make([]int, 0, len(sales))
	for _, s := range sortedByDate(sales) {
		if _, ok := domain.WeekdayOf(s.Date); ok {
			all = append(all, s.Quantity)
		}
	}
	fallback := e.weightedMean(tail(all, e.window))

	var out [domain.DaysPerWeek]domain.WeekdayBaseline
	for day := domain.Monday; day <= domain.Saturday; day++ {
		qs := tail(byDay[day], e.window)
		b := domain.WeekdayBaseline{ItemID: itemID, Day: day, Samples: len(qs)}
		switch {
		case len(qs) >= e.minSamples:
			b.Estimate = e.weightedMean(qs)
		case len(all) > 0:
			b.Estimate = fallback
			b.Fallback = true
		}
		out[day] = b
	}
	return out
}

// Stats computes the unweighted trailing mean and standard deviation
// per weekday, used to judge whether a forecast deviates from history.
func (e *Estimator) Stats(sales []*domain.SaleRecord) [domain.DaysPerWeek]domain.WeekdayStats {
	byDay := groupByWeekday(sales)

	var out [domain.DaysPerWeek]domain.WeekdayStats
	for day := domain.Monday; day <= domain.Saturday; day++ {
		qs := tail(byDay[day], e.window)
		out[day] = meanStd(qs)
	}
	return out
}

// WeeklyStats aggregates an item's history into weekly totals and
// returns their mean and standard deviation, the "typical week" used
// for the order-sheet note.
func WeeklyStats(sales []*domain.SaleRecord) domain.WeekdayStats {
	totals := make(map[int64]int)
	for _, s := range sales {
		totals[domain.WeekStart(s.Date).Unix()] += s.Quantity
	}
	weeks := make([]int, 0, len(totals))
	for _, t := range totals {
		weeks = append(weeks, t)
	}
	return meanStd(weeks)
}

// weightedMean is the decayed average of a chronological series: the
// most recent observation carries weight 1, each step back multiplies
// the weight by decay.
func (e *Estimator) weightedMean(qs []int) float64 {
	if len(qs) == 0 {
		return 0
	}
	var sum, weight float64
	w := 1.0
	for i := len(qs) - 1; i >= 0; i-- {
		sum += float64(qs[i]) * w
		weight += w
		w *= e.decay
	}
	return sum / weight
}

// groupByWeekday buckets quantities per production day in date order.
// Sunday rows are ignored.
func groupByWeekday(sales []*domain.SaleRecord) [domain.DaysPerWeek][]int {
	var byDay [domain.DaysPerWeek][]int
	for _, s := range sortedByDate(sales) {
		day, ok := domain.WeekdayOf(s.Date)
		if !ok {
			continue
		}
		byDay[day] = append(byDay[day], s.Quantity)
	}
	return byDay
}

func sortedByDate(sales []*domain.SaleRecord) []*domain.SaleRecord {
	out := make([]*domain.SaleRecord, len(sales))
	copy(out, sales)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func tail(qs []int, n int) []int {
	if len(qs) > n {
		return qs[len(qs)-n:]
	}
	return qs
}

func meanStd(qs []int) domain.WeekdayStats {
	if len(qs) == 0 {
		return domain.WeekdayStats{}
	}
	var sum float64
	for _, q := range qs {
		sum += float64(q)
	}
	mean := sum / float64(len(qs))

	var sq float64
	for _, q := range qs {
		d := float64(q) - mean
		sq += d * d
	}
	return domain.WeekdayStats{
		Mean:    mean,
		StdDev:  math.Sqrt(sq / float64(len(qs))),
		Samples: len(qs),
	}
}
