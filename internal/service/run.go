package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/store"
)

// RunService retrieves recorded forecast runs and renders the order
// sheet. Runs are immutable; correcting a forecast means generating a
// new run for the same week.
type RunService struct {
	store  store.Store
	logger *logger.Logger
}

// NewRunService creates a new run service.
func NewRunService(st store.Store, log *logger.Logger) *RunService {
	return &RunService{store: st, logger: log}
}

// Get returns one run with its full item matrix and alerts.
func (s *RunService) Get(ctx context.Context, runID string) (*domain.ForecastRun, error) {
	return s.store.GetForecastRun(ctx, runID)
}

// List returns the runs for one week, newest first.
func (s *RunService) List(ctx context.Context, weekStart time.Time) ([]*domain.ForecastRun, error) {
	return s.store.ListForecastRuns(ctx, domain.WeekStart(weekStart))
}

// Latest returns the most recent run overall, the default view.
func (s *RunService) Latest(ctx context.Context) (*domain.ForecastRun, error) {
	return s.store.LatestForecastRun(ctx)
}

// LatestForWeek returns the most recent run for one week.
func (s *RunService) LatestForWeek(ctx context.Context, weekStart time.Time) (*domain.ForecastRun, error) {
	return s.store.LatestForecastRunForWeek(ctx, domain.WeekStart(weekStart))
}

// WriteCSV renders a run as the order sheet the bakery prints: one row
// per item with the weekly total and the day columns Mon through Sat.
func (s *RunService) WriteCSV(w io.Writer, run *domain.ForecastRun) error {
	cw := csv.NewWriter(w)

	header := []string{"Item", "Weekly Baking", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Notes"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, item := range run.Items {
		row := make([]string, 0, len(header))
		row = append(row, item.ItemName, strconv.Itoa(item.Total))
		for day := domain.Monday; day <= domain.Saturday; day++ {
			row = append(row, strconv.Itoa(item.Quantities[day]))
		}
		row = append(row, item.Note)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", item.ItemID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
