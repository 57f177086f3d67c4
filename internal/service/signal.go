package service

import (
	"context"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/store"
)

// SignalService manages the exogenous feeds: forecast weather and
// holiday/event calendars. Uploads upsert by date, latest wins.
type SignalService struct {
	store  store.Store
	logger *logger.Logger
}

// NewSignalService creates a new signal service.
func NewSignalService(st store.Store, log *logger.Logger) *SignalService {
	return &SignalService{store: st, logger: log}
}

// UpsertWeather stores a weather feed upload. Each day replaces any
// previously stored entry for the same date.
func (s *SignalService) UpsertWeather(ctx context.Context, days []*domain.WeatherDay) error {
	if len(days) == 0 {
		return errors.Validation("empty weather upload")
	}
	for _, d := range days {
		if d.Date.IsZero() {
			return errors.Validation("weather day without a date")
		}
		d.Date = domain.DateOnly(d.Date)
	}

	if err := s.store.UpsertWeather(ctx, days); err != nil {
		return err
	}
	s.logger.Info("stored weather feed", "days", len(days))
	return nil
}

// UpsertEvents stores a holiday/event calendar upload, keyed by
// (date, name) so coinciding events on one day coexist.
func (s *SignalService) UpsertEvents(ctx context.Context, events []*domain.CalendarEvent) error {
	if len(events) == 0 {
		return errors.Validation("empty events upload")
	}
	for _, ev := range events {
		if ev.Date.IsZero() || ev.Name == "" {
			return errors.Validation("event without a date or name")
		}
		if ev.Multiplier <= 0 {
			return errors.Validationf("event %q has non-positive multiplier %.2f", ev.Name, ev.Multiplier)
		}
		ev.Date = domain.DateOnly(ev.Date)
		if ev.Kind == "" {
			ev.Kind = domain.EventLocal
		}
	}

	if err := s.store.UpsertEvents(ctx, events); err != nil {
		return err
	}
	s.logger.Info("stored event calendar", "events", len(events))
	return nil
}

// ListWeather returns stored weather days in [from, to].
func (s *SignalService) ListWeather(ctx context.Context, from, to time.Time) ([]*domain.WeatherDay, error) {
	return s.store.ListWeather(ctx, from, to)
}

// ListEvents returns stored calendar events in [from, to].
func (s *SignalService) ListEvents(ctx context.Context, from, to time.Time) ([]*domain.CalendarEvent, error) {
	return s.store.ListEvents(ctx, from, to)
}
