package service

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/id"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/store"
	"github.com/bakesight/bakesight-server/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: &bytes.Buffer{}, Format: "json"})
}

func testForecastCfg() config.ForecastConfig {
	return config.ForecastConfig{
		Decay:             0.5,
		Window:            8,
		MinWeekdaySamples: 2,
		Alpha:             0.3,
		MinBatch:          6,
		AlertThreshold:    1.5,
		CoefTemp:          0.15,
		CoefRain:          0.10,
		ClampMin:          0.5,
		ClampMax:          1.5,
		LookbackWeeks:     26,
		MinTrainSamples:   20,
		CVErrorCeiling:    0.6,
		FuzzyThreshold:    0.82,
		FuzzyMargin:       0.05,
	}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seedItem(t *testing.T, st store.Store, name string) *domain.Item {
	t.Helper()
	item := domain.NewItem(id.MustGenerate(id.PrefixItem), name)
	require.NoError(t, st.CreateItem(t.Context(), item))
	return item
}

// seedSales writes weeks of Mon-Sat history for one item ending the
// week before weekStart, with a fixed quantity per weekday.
func seedSales(t *testing.T, st store.Store, itemID string, weekStart time.Time, weeks int, qty func(domain.Weekday) int) {
	t.Helper()
	var records []*domain.SaleRecord
	for w := 1; w <= weeks; w++ {
		monday := weekStart.AddDate(0, 0, -7*w)
		for day := domain.Monday; day <= domain.Saturday; day++ {
			records = append(records, &domain.SaleRecord{
				Date:     monday.AddDate(0, 0, int(day)),
				ItemID:   itemID,
				Quantity: qty(day),
			})
		}
	}
	require.NoError(t, st.AppendSales(t.Context(), records))
}
