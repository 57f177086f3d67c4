package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/model"
	"github.com/bakesight/bakesight-server/internal/store"
)

// TrainingService fits and persists per-item regression models.
type TrainingService struct {
	store   store.Store
	logger  *logger.Logger
	cfg     config.ForecastConfig
	trainer *model.Trainer
}

// NewTrainingService creates a new training service.
func NewTrainingService(st store.Store, cfg config.ForecastConfig, log *logger.Logger) *TrainingService {
	return &TrainingService{
		store:   st,
		logger:  log,
		cfg:     cfg,
		trainer: model.NewTrainer(cfg),
	}
}

// TrainItem trains one item's model on its full history and stores it,
// superseding any previous model. Returns NOT_READY when the item has
// too little history to train on.
func (s *TrainingService) TrainItem(ctx context.Context, itemID string) (*domain.ItemModel, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	m, err := s.train(ctx, item)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NotReadyf("%s needs at least %d days of history to train",
			item.CanonicalName, s.cfg.MinTrainSamples)
	}
	return m, nil
}

// TrainOutcome reports one item's training result in a bulk run.
type TrainOutcome struct {
	ItemID   string   `json:"itemId"`
	ItemName string   `json:"itemName"`
	Trained  bool     `json:"trained"`
	Samples  int      `json:"samples,omitempty"`
	CVError  *float64 `json:"cvError,omitempty"`
}

// TrainAll trains every active item with enough history, skipping the
// rest. One item's failure does not stop the run.
func (s *TrainingService) TrainAll(ctx context.Context) ([]TrainOutcome, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	outcomes := make([]TrainOutcome, 0, len(items))
	for _, item := range items {
		if !item.Active {
			continue
		}
		outcome := TrainOutcome{ItemID: item.ID, ItemName: item.CanonicalName}

		m, err := s.train(ctx, item)
		switch {
		case err != nil:
			s.logger.Warn("training failed", "item_id", item.ID, "error", err)
		case m != nil:
			outcome.Trained = true
			outcome.Samples = m.Samples
			outcome.CVError = m.CVError
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// train fits and saves one item's model; nil with no error means the
// history was too short. Training sees the same lookback window as the
// baseline so both learn from current demand, not last year's.
func (s *TrainingService) train(ctx context.Context, item *domain.Item) (*domain.ItemModel, error) {
	now := time.Now().UTC()
	from := domain.DateOnly(now).AddDate(0, 0, -7*s.cfg.LookbackWeeks)
	sales, err := s.store.ListSales(ctx, item.ID, from, domain.DateOnly(now))
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	sig, err := s.loadSignals(ctx, now)
	if err != nil {
		return nil, err
	}

	m, err := s.trainer.Train(item.ID, sales, sig)
	if err != nil || m == nil {
		return m, err
	}
	if err := s.store.SaveModel(ctx, m); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}

	s.logger.Info("trained item model",
		"item_id", item.ID,
		"samples", m.Samples,
		"cv_error", m.CVError,
		"low_confidence", m.LowConfidence,
	)
	return m, nil
}

// loadSignals fetches the lookback window's weather and holiday signals
// for feature building.
func (s *TrainingService) loadSignals(ctx context.Context, now time.Time) (model.Signals, error) {
	from := domain.DateOnly(now).AddDate(0, 0, -7*s.cfg.LookbackWeeks)
	to := domain.DateOnly(now).AddDate(0, 0, 7)

	weather, err := s.store.ListWeather(ctx, from, to)
	if err != nil {
		return model.Signals{}, fmt.Errorf("list weather: %w", err)
	}
	events, err := s.store.ListEvents(ctx, from, to)
	if err != nil {
		return model.Signals{}, fmt.Errorf("list events: %w", err)
	}

	sig := model.Signals{
		Weather:  make(map[time.Time]*domain.WeatherDay, len(weather)),
		Holidays: make(map[time.Time]bool),
	}
	for _, w := range weather {
		sig.Weather[domain.DateOnly(w.Date)] = w
	}
	for _, ev := range events {
		if ev.Kind == domain.EventHoliday || ev.Multiplier > 1 {
			sig.Holidays[domain.DateOnly(ev.Date)] = true
		}
	}
	return sig, nil
}

// GetModel returns one item's stored model metadata.
func (s *TrainingService) GetModel(ctx context.Context, itemID string) (*domain.ItemModel, error) {
	return s.store.GetModel(ctx, itemID)
}
