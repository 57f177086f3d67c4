package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
)

// UpsertWeather replaces the stored weather for each supplied date. Feeds
// re-publish forecasts as the week approaches, so the latest upload wins.
func (s *Store) UpsertWeather(ctx context.Context, days []*domain.WeatherDay) error {
	if len(days) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather (date, max_temp, rain_mm, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			max_temp = excluded.max_temp,
			rain_mm = excluded.rain_mm,
			source = excluded.source`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.ExecContext(ctx,
			formatDate(d.Date), nullFloat(d.MaxTemp), nullFloat(d.RainMM), d.Source,
		); err != nil {
			return fmt.Errorf("upsert weather %s: %w", formatDate(d.Date), err)
		}
	}

	return tx.Commit()
}

// ListWeather returns the weather rows in [from, to], oldest first.
func (s *Store) ListWeather(ctx context.Context, from, to time.Time) ([]*domain.WeatherDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, max_temp, rain_mm, source FROM weather
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []*domain.WeatherDay
	for rows.Next() {
		var d domain.WeatherDay
		var (
			date    string
			maxTemp sql.NullFloat64
			rainMM  sql.NullFloat64
		)
		if err := rows.Scan(&date, &maxTemp, &rainMM, &d.Source); err != nil {
			return nil, err
		}
		if d.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		d.MaxTemp = floatPtr(maxTemp)
		d.RainMM = floatPtr(rainMM)
		days = append(days, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if days == nil {
		days = []*domain.WeatherDay{}
	}
	return days, nil
}

// UpsertEvents writes calendar events keyed by (date, name); re-uploads
// update the multiplier and kind.
func (s *Store) UpsertEvents(ctx context.Context, events []*domain.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (date, kind, name, multiplier)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date, name) DO UPDATE SET
			kind = excluded.kind,
			multiplier = excluded.multiplier`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			formatDate(e.Date), string(e.Kind), e.Name, e.Multiplier,
		); err != nil {
			return fmt.Errorf("upsert event %s/%s: %w", formatDate(e.Date), e.Name, err)
		}
	}

	return tx.Commit()
}

// ListEvents returns the calendar events in [from, to], oldest first.
func (s *Store) ListEvents(ctx context.Context, from, to time.Time) ([]*domain.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, kind, name, multiplier FROM events
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, name ASC`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.CalendarEvent
	for rows.Next() {
		var e domain.CalendarEvent
		var date, kind string
		if err := rows.Scan(&date, &kind, &e.Name, &e.Multiplier); err != nil {
			return nil, err
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		e.Kind = domain.EventKind(kind)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		events = []*domain.CalendarEvent{}
	}
	return events, nil
}
