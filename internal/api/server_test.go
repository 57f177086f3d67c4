package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/search"
	"github.com/bakesight/bakesight-server/internal/service"
	"github.com/bakesight/bakesight-server/internal/store"
	"github.com/bakesight/bakesight-server/internal/store/sqlite"
)

type testServer struct {
	*Server
	api humatest.TestAPI
	st  store.Store
}

// setupTestServer creates a server over a fresh SQLite database and
// bleve index, with every route registered.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	log := logger.New(logger.Config{Writer: io.Discard, Format: "json"})

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.New(search.Options{DataPath: filepath.Join(tmpDir, "search"), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	st.SetSearchIndexer(index)

	cfg := &config.Config{
		Server: config.ServerConfig{Name: "BakeSight Test"},
		Import: config.ImportConfig{UploadsPerMinute: 100},
		Forecast: config.ForecastConfig{
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
		},
	}

	services := &Services{
		Ingest:   service.NewIngestService(st, cfg.Forecast, log),
		Item:     service.NewItemService(st, index, cfg.Forecast, log),
		Signal:   service.NewSignalService(st, log),
		Training: service.NewTrainingService(st, cfg.Forecast, log),
		Forecast: service.NewForecastService(st, cfg.Forecast, log),
		Run:      service.NewRunService(st, log),
	}

	server := NewServer(cfg, st, services, index, log)

	return &testServer{
		Server: server,
		api:    humatest.Wrap(t, server.api),
		st:     st,
	}
}

// responseEnvelope is the decoded wire envelope.
type responseEnvelope struct {
	V       int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(t *testing.T, body []byte, out any) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	if out != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

// uploadExport posts a CSV export and returns the recorded batch.
func (ts *testServer) uploadExport(t *testing.T, filename, csv string) ImportBatchResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/imports?filename="+filename,
		"Content-Type: text/csv", strings.NewReader(csv))
	require.Equal(t, http.StatusOK, resp.Code, "upload failed: %s", resp.Body.String())

	var batch ImportBatchResponse
	decodeData(t, resp.Body.Bytes(), &batch)
	return batch
}

const testExport = `Date,Item,Quantity Sold
2026-08-17,Sourdough Loaf,40
2026-08-18,Sourdough Loaf,35
2026-08-17,Almond Croissant,24
2026-08-18,Almond Croissant,20
`

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	env := decodeData(t, resp.Body.Bytes(), &health)
	assert.Equal(t, 1, env.V)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "healthy", health.Components["search"].Status)
}

func TestEnvelope_ErrorShape(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/items/item-missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeData(t, resp.Body.Bytes(), nil)
	assert.Equal(t, 1, env.V)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

// seedHistory writes weeks of Mon-Sat sales ending the week before
// weekStart, directly through the store.
func seedHistory(t *testing.T, st store.Store, itemID string, weekStart time.Time, weeks, qty int) {
	t.Helper()
	var records []*domain.SaleRecord
	for w := 1; w <= weeks; w++ {
		monday := weekStart.AddDate(0, 0, -7*w)
		for day := domain.Monday; day <= domain.Saturday; day++ {
			records = append(records, &domain.SaleRecord{
				Date:     monday.AddDate(0, 0, int(day)),
				ItemID:   itemID,
				Quantity: qty,
			})
		}
	}
	require.NoError(t, st.AppendSales(t.Context(), records))
}
