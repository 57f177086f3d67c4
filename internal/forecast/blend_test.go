package forecast

import (
	"testing"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/stretchr/testify/assert"
)

// flatInput builds an item whose baseline is the same estimate every
// production day, with neutral multipliers and healthy sample counts.
func flatInput(estimate float64) ItemInput {
	in := ItemInput{
		ItemID:   "item_1",
		ItemName: "Sourdough Loaf",
		Weekly:   domain.WeekdayStats{Mean: estimate * domain.DaysPerWeek, StdDev: estimate, Samples: 8},
	}
	for day := domain.Monday; day <= domain.Saturday; day++ {
		in.Baselines[day] = domain.WeekdayBaseline{ItemID: "item_1", Day: day, Estimate: estimate, Samples: 4}
		in.Stats[day] = domain.WeekdayStats{Mean: estimate, StdDev: estimate / 10, Samples: 4}
		in.Multipliers[day] = 1
	}
	return in
}

func TestForecast_BaselineOnly(t *testing.T) {
	b := NewBlender(testCfg())

	fc, alerts := b.Forecast(flatInput(50))
	assert.Empty(t, alerts)
	assert.False(t, fc.ModelUsed)
	assert.False(t, fc.ColdStart)
	assert.Equal(t, [domain.DaysPerWeek]int{50, 50, 50, 50, 50, 50}, fc.Quantities)
	assert.Equal(t, 300, fc.Total)
	assert.Equal(t, "As expected", fc.Note)
}

func TestForecast_AlphaZeroIgnoresModel(t *testing.T) {
	b := NewBlender(testCfg())

	in := flatInput(50)
	in.Model = &[domain.DaysPerWeek]float64{900, 900, 900, 900, 900, 900}
	in.Alpha = 0

	fc, _ := b.Forecast(in)
	assert.False(t, fc.ModelUsed)
	assert.Equal(t, 50, fc.Quantities[domain.Monday])
}

func TestForecast_AlphaOneEqualsModel(t *testing.T) {
	b := NewBlender(testCfg())

	in := flatInput(50)
	in.Model = &[domain.DaysPerWeek]float64{10, 20, 30, 40, 50, 60}
	in.Alpha = 1
	in.Stats = [domain.DaysPerWeek]domain.WeekdayStats{} // silence deviation alerts

	fc, alerts := b.Forecast(in)
	assert.Empty(t, alerts)
	assert.True(t, fc.ModelUsed)
	assert.Equal(t, [domain.DaysPerWeek]int{10, 20, 30, 40, 50, 60}, fc.Quantities)
}

func TestForecast_BlendSplitsTheDifference(t *testing.T) {
	b := NewBlender(testCfg())

	in := flatInput(40)
	in.Model = &[domain.DaysPerWeek]float64{60, 60, 60, 60, 60, 60}
	in.Alpha = 0.5
	in.Stats = [domain.DaysPerWeek]domain.WeekdayStats{}

	fc, _ := b.Forecast(in)
	assert.Equal(t, 50, fc.Quantities[domain.Monday])
}

func TestForecast_HolidayMultiplier(t *testing.T) {
	b := NewBlender(testCfg())

	in := flatInput(50)
	in.Multipliers[domain.Monday] = 1.3
	in.Stats = [domain.DaysPerWeek]domain.WeekdayStats{}

	fc, _ := b.Forecast(in)
	assert.Equal(t, 65, fc.Quantities[domain.Monday])
	assert.Equal(t, 50, fc.Quantities[domain.Tuesday])
}

func TestForecast_MinBatchFloor(t *testing.T) {
	b := NewBlender(testCfg())

	in := flatInput(2.4)
	in.Stats = [domain.DaysPerWeek]domain.WeekdayStats{}
	in.Weekly = domain.WeekdayStats{}

	fc, _ := b.Forecast(in)
	// A positive trickle still rounds up to a bakeable batch.
	assert.Equal(t, 6, fc.Quantities[domain.Monday])

	// Zero is zero: the floor never invents demand.
	in = flatInput(0)
	in.Stats = [domain.DaysPerWeek]domain.WeekdayStats{}
	fc, _ = b.Forecast(in)
	assert.Equal(t, 0, fc.Quantities[domain.Monday])
}

func TestForecast_MinBatchFloorBeforeRounding(t *testing.T) {
	b := NewBlender(testCfg())

	// 0.4 rounds to zero, but demand is still positive.
	in := flatInput(0.4)
	in.Stats = [domain.DaysPerWeek]domain.WeekdayStats{}
	in.Weekly = domain.WeekdayStats{}

	fc, _ := b.Forecast(in)
	assert.Equal(t, 6, fc.Quantities[domain.Monday])
	assert.Equal(t, 36, fc.Total)
}

func TestForecast_PerItemMinBatch(t *testing.T) {
	b := NewBlender(testCfg())

	in := flatInput(2.4)
	in.Stats = [domain.DaysPerWeek]domain.WeekdayStats{}
	in.Weekly = domain.WeekdayStats{}
	in.MinBatch = 12

	fc, _ := b.Forecast(in)
	assert.Equal(t, 12, fc.Quantities[domain.Monday])

	// Zero falls back to the configured default.
	in.MinBatch = 0
	fc, _ = b.Forecast(in)
	assert.Equal(t, 6, fc.Quantities[domain.Monday])
}

func TestForecast_OutlierAlert(t *testing.T) {
	b := NewBlender(testCfg())

	in := flatInput(50)
	// History says Mondays run around 40 give or take 2; forecasting 50
	// is a five-sigma surprise.
	in.Stats[domain.Monday] = domain.WeekdayStats{Mean: 40, StdDev: 2, Samples: 8}
	in.Weekly = domain.WeekdayStats{Mean: 300, StdDev: 100, Samples: 8}

	fc, alerts := b.Forecast(in)
	assert.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, domain.AlertOutlier, alert.Reason)
	assert.Equal(t, domain.Monday, alert.Day)
	assert.InDelta(t, 50, alert.Forecast, 0.001)
	assert.InDelta(t, 40, alert.Mean, 0.001)

	// Advisory only: the forecast value stands.
	assert.Equal(t, 50, fc.Quantities[domain.Monday])
}

func TestForecast_ColdStart(t *testing.T) {
	b := NewBlender(testCfg())

	in := ItemInput{ItemID: "item_1", ItemName: "New Bake"}
	for day := domain.Monday; day <= domain.Saturday; day++ {
		in.Multipliers[day] = 1
	}

	fc, alerts := b.Forecast(in)
	assert.True(t, fc.ColdStart)
	assert.Equal(t, "No history yet", fc.Note)
	assert.Zero(t, fc.Total)
	assert.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertColdStart, alerts[0].Reason)
}

func TestWeeklyNote(t *testing.T) {
	tests := []struct {
		name     string
		forecast float64
		weekly   domain.WeekdayStats
		want     string
	}{
		{"no history", 100, domain.WeekdayStats{}, "No typical week yet"},
		{"as expected", 310, domain.WeekdayStats{Mean: 300, StdDev: 20, Samples: 8}, "As expected"},
		{"higher", 350, domain.WeekdayStats{Mean: 300, StdDev: 10, Samples: 8}, "Higher than usual (+17%)"},
		{"lower", 200, domain.WeekdayStats{Mean: 300, StdDev: 10, Samples: 8}, "Lower than usual (-33%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, weeklyNote(tt.forecast, tt.weekly, 1.5))
		})
	}
}
