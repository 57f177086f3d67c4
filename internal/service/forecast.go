package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/forecast"
	"github.com/bakesight/bakesight-server/internal/id"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/model"
	"github.com/bakesight/bakesight-server/internal/store"
)

// forecastWorkers bounds the per-item fan-out.
const forecastWorkers = 8

// ForecastService generates versioned forecast runs: baseline plus
// optional model blend, exogenous adjustments, floors, and alerts.
type ForecastService struct {
	store     store.Store
	logger    *logger.Logger
	cfg       config.ForecastConfig
	estimator *forecast.Estimator
	adjuster  *forecast.Adjuster
	blender   *forecast.Blender
}

// NewForecastService creates a new forecast service.
func NewForecastService(st store.Store, cfg config.ForecastConfig, log *logger.Logger) *ForecastService {
	return &ForecastService{
		store:     st,
		logger:    log,
		cfg:       cfg,
		estimator: forecast.NewEstimator(cfg),
		adjuster:  forecast.NewAdjuster(cfg),
		blender:   forecast.NewBlender(cfg),
	}
}

// GenerateParams configures one forecast run.
type GenerateParams struct {
	// WeekStart is the Monday to forecast; zero means the next Monday.
	WeekStart time.Time
	// Alpha overrides the configured model blend weight when non-nil.
	Alpha *float64
	// UseModel enables per-item model blending where models exist.
	UseModel bool
	Note     string
}

// Generate computes and records a forecast run for one production week.
// The run is written complete or not at all; per-item model failures
// degrade that item to its baseline rather than failing the run.
func (s *ForecastService) Generate(ctx context.Context, params GenerateParams) (*domain.ForecastRun, error) {
	weekStart := params.WeekStart
	if weekStart.IsZero() {
		weekStart = nextMonday(time.Now().UTC())
	} else if !weekStart.Equal(domain.WeekStart(weekStart)) {
		return nil, errors.Validationf("week start %s is not a Monday", domain.FormatDate(weekStart))
	}

	latest, err := s.store.LatestSaleDate(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotReady("no sales history has been ingested yet")
		}
		return nil, err
	}
	// Forecasting needs sales from the week immediately before the
	// target week; stale history means the feed stopped.
	if latest.Before(weekStart.AddDate(0, 0, -7)) {
		return nil, errors.NotReadyf(
			"sales history ends %s; the week of %s needs sales through the preceding week",
			domain.FormatDate(latest), domain.FormatDate(weekStart),
		)
	}
	alpha := s.cfg.Alpha
	if params.Alpha != nil {
		alpha = *params.Alpha
	}
	if alpha < 0 || alpha > 1 {
		return nil, errors.Validationf("alpha %.2f is outside [0, 1]", alpha)
	}

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	weekEnd := weekStart.AddDate(0, 0, domain.DaysPerWeek-1)
	historyFrom := weekStart.AddDate(0, 0, -7*s.cfg.LookbackWeeks)
	sig, multipliers, err := s.loadSignals(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	forecasts := make([]*domain.ItemForecast, len(items))
	var mu sync.Mutex
	var alerts []domain.Alert

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(forecastWorkers)
	for i, item := range items {
		if !item.Active {
			continue
		}
		g.Go(func() error {
			fc, itemAlerts, err := s.forecastItem(gctx, item, weekStart, historyFrom, alpha, params.UseModel, sig, multipliers)
			if err != nil {
				return err
			}
			forecasts[i] = fc
			mu.Lock()
			alerts = append(alerts, itemAlerts...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	run := &domain.ForecastRun{
		WeekStart: weekStart,
		Alpha:     alpha,
		UseModel:  params.UseModel,
		Note:      params.Note,
		CreatedAt: time.Now().UTC(),
	}
	for _, fc := range forecasts {
		if fc != nil {
			run.Items = append(run.Items, *fc)
		}
	}
	sort.Slice(run.Items, func(i, j int) bool { return run.Items[i].ItemName < run.Items[j].ItemName })
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].ItemName != alerts[j].ItemName {
			return alerts[i].ItemName < alerts[j].ItemName
		}
		return alerts[i].Day < alerts[j].Day
	})
	run.Alerts = alerts

	run.ID, err = id.Generate(id.PrefixRun)
	if err != nil {
		return nil, fmt.Errorf("generate run ID: %w", err)
	}
	if err := s.store.CreateForecastRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record forecast run: %w", err)
	}

	s.logger.Info("recorded forecast run",
		"run_id", run.ID,
		"week_start", domain.FormatDate(run.WeekStart),
		"items", len(run.Items),
		"alerts", len(run.Alerts),
		"total_units", run.TotalUnits(),
	)
	return run, nil
}

func (s *ForecastService) forecastItem(
	ctx context.Context,
	item *domain.Item,
	weekStart, historyFrom time.Time,
	alpha float64,
	useModel bool,
	sig model.Signals,
	multipliers [domain.DaysPerWeek]float64,
) (*domain.ItemForecast, []domain.Alert, error) {
	sales, err := s.store.ListSales(ctx, item.ID, historyFrom, weekStart.AddDate(0, 0, -1))
	if err != nil {
		return nil, nil, fmt.Errorf("list sales for %s: %w", item.ID, err)
	}

	in := forecast.ItemInput{
		ItemID:      item.ID,
		ItemName:    item.CanonicalName,
		Baselines:   s.estimator.Baselines(item.ID, sales),
		Stats:       s.estimator.Stats(sales),
		Multipliers: multipliers,
		Alpha:       alpha,
		Weekly:      forecast.WeeklyStats(sales),
		MinBatch:    item.MinBatch,
	}

	if useModel {
		in.Model = s.modelPrediction(ctx, item, weekStart, sales, sig)
	}

	fc, alerts := s.blender.Forecast(in)
	return &fc, alerts, nil
}

// modelPrediction loads and applies the item's model, returning nil
// whenever the item should fall back to its baseline: no model,
// low-confidence model, or a prediction failure.
func (s *ForecastService) modelPrediction(
	ctx context.Context,
	item *domain.Item,
	weekStart time.Time,
	sales []*domain.SaleRecord,
	sig model.Signals,
) *[domain.DaysPerWeek]float64 {
	m, err := s.store.GetModel(ctx, item.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to load model, using baseline", "item_id", item.ID, "error", err)
		}
		return nil
	}
	if m.LowConfidence {
		return nil
	}

	pred, err := model.PredictWeek(m, weekStart, sales, sig)
	if err != nil {
		s.logger.Warn("model prediction failed, using baseline", "item_id", item.ID, "error", err)
		return nil
	}
	return pred
}

// loadSignals fetches the week's weather and events and precomputes the
// per-day adjustment multipliers. Missing feeds are neutral.
func (s *ForecastService) loadSignals(ctx context.Context, weekStart, weekEnd time.Time) (model.Signals, [domain.DaysPerWeek]float64, error) {
	var multipliers [domain.DaysPerWeek]float64

	weather, err := s.store.ListWeather(ctx, weekStart, weekEnd)
	if err != nil {
		return model.Signals{}, multipliers, fmt.Errorf("list weather: %w", err)
	}
	events, err := s.store.ListEvents(ctx, weekStart, weekEnd)
	if err != nil {
		return model.Signals{}, multipliers, fmt.Errorf("list events: %w", err)
	}

	sig := model.Signals{
		Weather:  make(map[time.Time]*domain.WeatherDay, len(weather)),
		Holidays: make(map[time.Time]bool),
	}
	weatherByDay := make(map[domain.Weekday]*domain.WeatherDay)
	eventsByDay := make(map[domain.Weekday][]domain.CalendarEvent)

	for _, w := range weather {
		sig.Weather[domain.DateOnly(w.Date)] = w
		if day, ok := domain.WeekdayOf(w.Date); ok {
			weatherByDay[day] = w
		}
	}
	for _, ev := range events {
		if ev.Kind == domain.EventHoliday || ev.Multiplier > 1 {
			sig.Holidays[domain.DateOnly(ev.Date)] = true
		}
		if day, ok := domain.WeekdayOf(ev.Date); ok {
			eventsByDay[day] = append(eventsByDay[day], *ev)
		}
	}

	for day := domain.Monday; day <= domain.Saturday; day++ {
		multipliers[day] = s.adjuster.Multiplier(weatherByDay[day], eventsByDay[day])
	}
	return sig, multipliers, nil
}

// nextMonday returns the Monday of the upcoming production week: today
// when today is a Monday, otherwise the next one.
func nextMonday(now time.Time) time.Time {
	today := domain.DateOnly(now)
	offset := (7 - int(today.Weekday()) + int(time.Monday)) % 7
	return today.AddDate(0, 0, offset)
}
