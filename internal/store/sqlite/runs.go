package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/store"
)

const runColumns = `id, week_start, alpha, use_model, note, created_at`

func scanRunHeader(scanner interface{ Scan(dest ...any) error }) (*domain.ForecastRun, error) {
	var r domain.ForecastRun
	var (
		weekStart string
		useModel  int
		createdAt string
	)

	err := scanner.Scan(&r.ID, &weekStart, &r.Alpha, &useModel, &r.Note, &createdAt)
	if err != nil {
		return nil, err
	}

	if r.WeekStart, err = parseDate(weekStart); err != nil {
		return nil, err
	}
	r.UseModel = useModel != 0
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateForecastRun persists a run with its item rows and alerts in a
// single transaction. Runs are append-only; nothing here updates an
// existing row.
func (s *Store) CreateForecastRun(ctx context.Context, run *domain.ForecastRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO forecast_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatDate(run.WeekStart),
		run.Alpha,
		boolInt(run.UseModel),
		run.Note,
		formatTime(run.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert run: %w", err)
	}

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO forecast_run_items
			(run_id, item_id, item_name, mon, tue, wed, thu, fri, sat, total, model_used, cold_start, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for _, it := range run.Items {
		q := it.Quantities
		if _, err := itemStmt.ExecContext(ctx,
			run.ID, it.ItemID, it.ItemName,
			q[0], q[1], q[2], q[3], q[4], q[5],
			it.Total, boolInt(it.ModelUsed), boolInt(it.ColdStart), it.Note,
		); err != nil {
			return fmt.Errorf("insert run item %s: %w", it.ItemID, err)
		}
	}

	alertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO forecast_run_alerts
			(run_id, item_id, item_name, day, reason, forecast, mean, std_dev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare alert insert: %w", err)
	}
	defer alertStmt.Close()

	for _, a := range run.Alerts {
		if _, err := alertStmt.ExecContext(ctx,
			run.ID, a.ItemID, a.ItemName, int(a.Day), string(a.Reason),
			a.Forecast, a.Mean, a.StdDev,
		); err != nil {
			return fmt.Errorf("insert run alert %s: %w", a.ItemID, err)
		}
	}

	return tx.Commit()
}

// GetForecastRun loads a full run including item rows and alerts.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetForecastRun(ctx context.Context, id string) (*domain.ForecastRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM forecast_runs WHERE id = ?`, id)

	run, err := scanRunHeader(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadRunDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListForecastRuns returns all runs for a week, newest first, with full
// detail rows.
func (s *Store) ListForecastRuns(ctx context.Context, weekStart time.Time) ([]*domain.ForecastRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM forecast_runs
		WHERE week_start = ?
		ORDER BY created_at DESC`,
		formatDate(weekStart))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.ForecastRun
	for rows.Next() {
		r, err := scanRunHeader(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range runs {
		if err := s.loadRunDetails(ctx, r); err != nil {
			return nil, err
		}
	}

	if runs == nil {
		runs = []*domain.ForecastRun{}
	}
	return runs, nil
}

// LatestForecastRun returns the most recently created run across all weeks.
// Returns store.ErrNotFound when no runs exist.
func (s *Store) LatestForecastRun(ctx context.Context) (*domain.ForecastRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM forecast_runs ORDER BY created_at DESC LIMIT 1`)
	return s.runFromHeaderRow(ctx, row)
}

// LatestForecastRunForWeek returns the newest run for one production week.
// Returns store.ErrNotFound when the week has no runs.
func (s *Store) LatestForecastRunForWeek(ctx context.Context, weekStart time.Time) (*domain.ForecastRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM forecast_runs
		WHERE week_start = ?
		ORDER BY created_at DESC LIMIT 1`,
		formatDate(weekStart))
	return s.runFromHeaderRow(ctx, row)
}

func (s *Store) runFromHeaderRow(ctx context.Context, row *sql.Row) (*domain.ForecastRun, error) {
	run, err := scanRunHeader(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRunDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// loadRunDetails fills Items and Alerts for a run header.
func (s *Store) loadRunDetails(ctx context.Context, run *domain.ForecastRun) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, item_name, mon, tue, wed, thu, fri, sat, total, model_used, cold_start, note
		FROM forecast_run_items WHERE run_id = ?
		ORDER BY item_name COLLATE NOCASE ASC`,
		run.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	run.Items = []domain.ItemForecast{}
	for rows.Next() {
		var it domain.ItemForecast
		var modelUsed, coldStart int
		q := &it.Quantities
		if err := rows.Scan(
			&it.ItemID, &it.ItemName,
			&q[0], &q[1], &q[2], &q[3], &q[4], &q[5],
			&it.Total, &modelUsed, &coldStart, &it.Note,
		); err != nil {
			return err
		}
		it.ModelUsed = modelUsed != 0
		it.ColdStart = coldStart != 0
		run.Items = append(run.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	alertRows, err := s.db.QueryContext(ctx, `
		SELECT item_id, item_name, day, reason, forecast, mean, std_dev
		FROM forecast_run_alerts WHERE run_id = ?
		ORDER BY item_name COLLATE NOCASE ASC, day ASC`,
		run.ID)
	if err != nil {
		return err
	}
	defer alertRows.Close()

	for alertRows.Next() {
		var a domain.Alert
		var day int
		var reason string
		if err := alertRows.Scan(
			&a.ItemID, &a.ItemName, &day, &reason, &a.Forecast, &a.Mean, &a.StdDev,
		); err != nil {
			return err
		}
		a.Day = domain.Weekday(day)
		a.Reason = domain.AlertReason(reason)
		run.Alerts = append(run.Alerts, a)
	}
	return alertRows.Err()
}
