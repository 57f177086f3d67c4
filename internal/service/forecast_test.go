package service

import (
	"testing"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_NotReadyWithoutHistory(t *testing.T) {
	st := newTestStore(t)
	svc := NewForecastService(st, testForecastCfg(), newTestLogger())

	_, err := svc.Generate(t.Context(), GenerateParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotReady))
}

func TestGenerate_StaleHistoryNotReady(t *testing.T) {
	st := newTestStore(t)
	item := seedItem(t, st, "Sourdough Loaf")
	// History ends mid-July; forecasting late August needs sales from
	// the preceding week.
	seedSales(t, st, item.ID, date(t, "2026-07-13"), 4, func(domain.Weekday) int { return 40 })
	svc := NewForecastService(st, testForecastCfg(), newTestLogger())

	_, err := svc.Generate(t.Context(), GenerateParams{WeekStart: date(t, "2026-08-24")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotReady))
	// The error names where the history stops.
	assert.Contains(t, err.Error(), "2026-07-11")
}

func TestGenerate_RejectsMidWeekStart(t *testing.T) {
	st := newTestStore(t)
	item := seedItem(t, st, "Sourdough Loaf")
	seedSales(t, st, item.ID, date(t, "2026-08-24"), 4, func(domain.Weekday) int { return 40 })
	svc := NewForecastService(st, testForecastCfg(), newTestLogger())

	_, err := svc.Generate(t.Context(), GenerateParams{WeekStart: date(t, "2026-08-26")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestGenerate_BaselineRun(t *testing.T) {
	st := newTestStore(t)
	weekStart := date(t, "2026-08-24")
	item := seedItem(t, st, "Sourdough Loaf")
	seedSales(t, st, item.ID, weekStart, 6, func(day domain.Weekday) int { return 30 + int(day) })
	svc := NewForecastService(st, testForecastCfg(), newTestLogger())

	run, err := svc.Generate(t.Context(), GenerateParams{WeekStart: weekStart})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, weekStart, run.WeekStart)
	require.Len(t, run.Items, 1)

	fc := run.Items[0]
	assert.Equal(t, item.ID, fc.ItemID)
	assert.False(t, fc.ColdStart)
	// Constant per-weekday history forecasts itself.
	for day := domain.Monday; day <= domain.Saturday; day++ {
		assert.Equal(t, 30+int(day), fc.Quantities[day], "day %s", day)
	}
	assert.Empty(t, run.Alerts)

	// The run was persisted and is the latest for its week.
	stored, err := st.LatestForecastRunForWeek(t.Context(), weekStart)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
}

func TestGenerate_RunsAreVersionedNotReplaced(t *testing.T) {
	st := newTestStore(t)
	weekStart := date(t, "2026-08-24")
	item := seedItem(t, st, "Sourdough Loaf")
	seedSales(t, st, item.ID, weekStart, 4, func(domain.Weekday) int { return 40 })
	svc := NewForecastService(st, testForecastCfg(), newTestLogger())

	first, err := svc.Generate(t.Context(), GenerateParams{WeekStart: weekStart})
	require.NoError(t, err)
	second, err := svc.Generate(t.Context(), GenerateParams{WeekStart: weekStart})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := st.ListForecastRuns(t.Context(), weekStart)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGenerate_ColdStartItemIncluded(t *testing.T) {
	st := newTestStore(t)
	weekStart := date(t, "2026-08-24")
	established := seedItem(t, st, "Sourdough Loaf")
	seedSales(t, st, established.ID, weekStart, 4, func(domain.Weekday) int { return 40 })
	newcomer := seedItem(t, st, "Pistachio Swirl")
	svc := NewForecastService(st, testForecastCfg(), newTestLogger())

	run, err := svc.Generate(t.Context(), GenerateParams{WeekStart: weekStart})
	require.NoError(t, err)
	require.Len(t, run.Items, 2)

	var cold *domain.ItemForecast
	for i := range run.Items {
		if run.Items[i].ItemID == newcomer.ID {
			cold = &run.Items[i]
		}
	}
	require.NotNil(t, cold, "cold-start item must not be omitted from the run")
	assert.True(t, cold.ColdStart)
	assert.Zero(t, cold.Total)

	var reasons []domain.AlertReason
	for _, a := range run.Alerts {
		reasons = append(reasons, a.Reason)
	}
	assert.Contains(t, reasons, domain.AlertColdStart)
}

func TestGenerate_HolidayLiftsDay(t *testing.T) {
	st := newTestStore(t)
	weekStart := date(t, "2026-08-24")
	item := seedItem(t, st, "Sourdough Loaf")
	seedSales(t, st, item.ID, weekStart, 6, func(domain.Weekday) int { return 40 })
	require.NoError(t, st.UpsertEvents(t.Context(), []*domain.CalendarEvent{{
		Date:       weekStart,
		Kind:       domain.EventHoliday,
		Name:       "Bank Holiday",
		Multiplier: 1.3,
	}}))
	svc := NewForecastService(st, testForecastCfg(), newTestLogger())

	run, err := svc.Generate(t.Context(), GenerateParams{WeekStart: weekStart})
	require.NoError(t, err)
	require.Len(t, run.Items, 1)
	fc := run.Items[0]
	assert.Equal(t, 52, fc.Quantities[domain.Monday]) // 40 × 1.3
	assert.Equal(t, 40, fc.Quantities[domain.Tuesday])
}

func TestGenerate_LowConfidenceModelFallsBackToBaseline(t *testing.T) {
	st := newTestStore(t)
	weekStart := date(t, "2026-08-24")
	item := seedItem(t, st, "Sourdough Loaf")
	seedSales(t, st, item.ID, weekStart, 6, func(domain.Weekday) int { return 40 })

	// A stored model that cross-validated badly. Its weights would
	// predict absurd quantities if they were ever applied.
	cvErr := 0.9
	require.NoError(t, st.SaveModel(t.Context(), &domain.ItemModel{
		ItemID:    item.ID,
		Algorithm: "ridge",
		Parameters: []byte(`{"features":["max_temp","rain_mm","last4_same_wd","last8_same_wd","is_holiday","month_sin","month_cos","wd_1","wd_2","wd_3","wd_4","wd_5","wd_6"],` +
			`"weights":[0,0,500,500,0,0,0,0,0,0,0,0,0],"bias":1000,` +
			`"means":[0,0,0,0,0,0,0,0,0,0,0,0,0],"stds":[1,1,1,1,1,1,1,1,1,1,1,1,1],"medians":[0,0,0,0,0,0,0,0,0,0,0,0,0]}`),
		Features:      model.FeatureNames,
		Samples:       36,
		CVError:       &cvErr,
		LowConfidence: true,
		TrainedAt:     time.Now().UTC(),
	}))

	svc := NewForecastService(st, testForecastCfg(), newTestLogger())
	run, err := svc.Generate(t.Context(), GenerateParams{WeekStart: weekStart, UseModel: true})
	require.NoError(t, err)
	require.Len(t, run.Items, 1)

	fc := run.Items[0]
	assert.False(t, fc.ModelUsed)
	for day := domain.Monday; day <= domain.Saturday; day++ {
		assert.Equal(t, 40, fc.Quantities[day], "day %s", day)
	}
}

func TestGenerate_SkipsInactiveItems(t *testing.T) {
	st := newTestStore(t)
	weekStart := date(t, "2026-08-24")
	item := seedItem(t, st, "Sourdough Loaf")
	seedSales(t, st, item.ID, weekStart, 4, func(domain.Weekday) int { return 40 })

	retired := seedItem(t, st, "Spelt Boule")
	retired.Active = false
	require.NoError(t, st.UpdateItem(t.Context(), retired))

	svc := NewForecastService(st, testForecastCfg(), newTestLogger())
	run, err := svc.Generate(t.Context(), GenerateParams{WeekStart: weekStart})
	require.NoError(t, err)
	require.Len(t, run.Items, 1)
	assert.Equal(t, item.ID, run.Items[0].ItemID)
}
