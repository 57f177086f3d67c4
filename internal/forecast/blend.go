package forecast

import (
	"fmt"
	"math"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
)

// Blender combines baseline, optional model prediction, and the day
// multipliers into the final per-day quantities, enforcing batch floors
// and raising advisory alerts. Alerts never alter the forecast value.
type Blender struct {
	minBatch       int
	alertThreshold float64
}

// NewBlender builds a blender from the forecast configuration.
func NewBlender(cfg config.ForecastConfig) *Blender {
	return &Blender{
		minBatch:       cfg.MinBatch,
		alertThreshold: cfg.AlertThreshold,
	}
}

// ItemInput carries everything the blender needs for one item. Model is
// nil when no usable model exists (untrained, or low-confidence and
// discounted by the caller); Multipliers come from the Adjuster, one
// per production day.
type ItemInput struct {
	ItemID      string
	ItemName    string
	Baselines   [domain.DaysPerWeek]domain.WeekdayBaseline
	Stats       [domain.DaysPerWeek]domain.WeekdayStats
	Model       *[domain.DaysPerWeek]float64
	Multipliers [domain.DaysPerWeek]float64
	// Alpha weights the model prediction in the blend, 0 to 1.
	Alpha float64
	// Weekly is the item's typical-week statistics for the note.
	Weekly domain.WeekdayStats
	// MinBatch overrides the configured batch floor for this item when
	// positive.
	MinBatch int
}

// Forecast produces one item's order-sheet row and any alerts. Rounding
// happens last: floors and deviation checks see the fractional value so
// rounding cannot manufacture a false alert.
func (b *Blender) Forecast(in ItemInput) (domain.ItemForecast, []domain.Alert) {
	out := domain.ItemForecast{
		ItemID:    in.ItemID,
		ItemName:  in.ItemName,
		ModelUsed: in.Model != nil && in.Alpha > 0,
	}
	var alerts []domain.Alert

	floor := b.minBatch
	if in.MinBatch > 0 {
		floor = in.MinBatch
	}

	coldStart := true
	for day := domain.Monday; day <= domain.Saturday; day++ {
		base := in.Baselines[day]
		if base.Samples > 0 || base.Fallback {
			coldStart = false
		}

		v := base.Estimate
		if out.ModelUsed {
			v = in.Alpha*in.Model[day] + (1-in.Alpha)*base.Estimate
		}
		v *= in.Multipliers[day]
		if v < 0 {
			v = 0
		}

		if st := in.Stats[day]; st.StdDev > 0 && math.Abs(v-st.Mean) > b.alertThreshold*st.StdDev {
			alerts = append(alerts, domain.Alert{
				ItemID:   in.ItemID,
				ItemName: in.ItemName,
				Day:      day,
				Reason:   domain.AlertOutlier,
				Forecast: v,
				Mean:     st.Mean,
				StdDev:   st.StdDev,
			})
		}

		// Floor on the fractional value: any positive demand signal
		// means baking at least one batch, even when rounding alone
		// would land on zero.
		q := int(math.Round(v))
		if v > 0 && q < floor {
			q = floor
		}
		out.Quantities[day] = q
		out.Total += q
	}

	if coldStart {
		out.ColdStart = true
		out.Note = "No history yet"
		alerts = append(alerts, domain.Alert{
			ItemID:   in.ItemID,
			ItemName: in.ItemName,
			Day:      domain.Monday,
			Reason:   domain.AlertColdStart,
		})
		return out, alerts
	}

	out.Note = weeklyNote(float64(out.Total), in.Weekly, b.alertThreshold)
	return out, alerts
}

// weeklyNote compares the forecast week total against the item's
// typical week and phrases the difference for the order sheet.
func weeklyNote(forecast float64, weekly domain.WeekdayStats, threshold float64) string {
	if weekly.Mean <= 0 {
		return "No typical week yet"
	}
	diffPct := (forecast - weekly.Mean) / weekly.Mean * 100
	switch {
	case weekly.StdDev > 0 && forecast > weekly.Mean+threshold*weekly.StdDev:
		return fmt.Sprintf("Higher than usual (+%.0f%%)", diffPct)
	case weekly.StdDev > 0 && forecast < math.Max(weekly.Mean-threshold*weekly.StdDev, 0):
		return fmt.Sprintf("Lower than usual (%.0f%%)", diffPct)
	default:
		return "As expected"
	}
}
