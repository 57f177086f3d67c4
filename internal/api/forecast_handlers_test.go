package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/id"
)

func seedForecastableItem(t *testing.T, ts *testServer, name string, weekStart time.Time, qty int) string {
	t.Helper()
	item := domain.NewItem(id.MustGenerate(id.PrefixItem), name)
	require.NoError(t, ts.st.CreateItem(t.Context(), item))
	seedHistory(t, ts.st, item.ID, weekStart, 6, qty)
	return item.ID
}

func TestGenerateForecast(t *testing.T) {
	ts := setupTestServer(t)
	weekStart, _ := domain.ParseDate("2026-08-24")
	itemID := seedForecastableItem(t, ts, "Sourdough Loaf", weekStart, 40)

	resp := ts.api.Post("/api/v1/forecasts", map[string]any{
		"week_start": "2026-08-24",
	})
	assert.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var run ForecastRunResponse
	decodeData(t, resp.Body.Bytes(), &run)
	assert.True(t, strings.HasPrefix(run.ID, "run-"))
	assert.Equal(t, "2026-08-24", run.WeekStart)
	require.Len(t, run.Items, 1)
	assert.Equal(t, itemID, run.Items[0].ItemID)
	require.Len(t, run.Items[0].Quantities, 6)
	for _, q := range run.Items[0].Quantities {
		assert.Equal(t, 40, q)
	}
}

func TestGenerateForecast_NotReady(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/forecasts", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	env := decodeData(t, resp.Body.Bytes(), nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_READY", env.Error.Code)
}

func TestGenerateForecast_RejectsMidWeekStart(t *testing.T) {
	ts := setupTestServer(t)
	weekStart, _ := domain.ParseDate("2026-08-24")
	seedForecastableItem(t, ts, "Sourdough Loaf", weekStart, 40)

	resp := ts.api.Post("/api/v1/forecasts", map[string]any{
		"week_start": "2026-08-26",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetLatestForecast(t *testing.T) {
	ts := setupTestServer(t)
	weekStart, _ := domain.ParseDate("2026-08-24")
	seedForecastableItem(t, ts, "Sourdough Loaf", weekStart, 40)

	created := ts.api.Post("/api/v1/forecasts", map[string]any{"week_start": "2026-08-24"})
	require.Equal(t, http.StatusCreated, created.Code)
	var generated ForecastRunResponse
	decodeData(t, created.Body.Bytes(), &generated)

	latest := ts.api.Get("/api/v1/forecasts/latest")
	assert.Equal(t, http.StatusOK, latest.Code)
	var run ForecastRunResponse
	decodeData(t, latest.Body.Bytes(), &run)
	assert.Equal(t, generated.ID, run.ID)

	// Mid-week dates resolve to the same Monday.
	byWeek := ts.api.Get("/api/v1/forecasts/latest?week=2026-08-27")
	assert.Equal(t, http.StatusOK, byWeek.Code)
	decodeData(t, byWeek.Body.Bytes(), &run)
	assert.Equal(t, generated.ID, run.ID)
}

func TestListForecasts_VersionedRuns(t *testing.T) {
	ts := setupTestServer(t)
	weekStart, _ := domain.ParseDate("2026-08-24")
	seedForecastableItem(t, ts, "Sourdough Loaf", weekStart, 40)

	for range 2 {
		resp := ts.api.Post("/api/v1/forecasts", map[string]any{"week_start": "2026-08-24"})
		require.Equal(t, http.StatusCreated, resp.Code)
	}

	list := ts.api.Get("/api/v1/forecasts?week=2026-08-24")
	assert.Equal(t, http.StatusOK, list.Code)

	var body struct {
		Runs []ForecastRunResponse `json:"runs"`
	}
	decodeData(t, list.Body.Bytes(), &body)
	require.Len(t, body.Runs, 2)
	assert.NotEqual(t, body.Runs[0].ID, body.Runs[1].ID)
}

func TestGetForecastCSV(t *testing.T) {
	ts := setupTestServer(t)
	weekStart, _ := domain.ParseDate("2026-08-24")
	seedForecastableItem(t, ts, "Sourdough Loaf", weekStart, 40)

	created := ts.api.Post("/api/v1/forecasts", map[string]any{"week_start": "2026-08-24"})
	require.Equal(t, http.StatusCreated, created.Code)
	var run ForecastRunResponse
	decodeData(t, created.Body.Bytes(), &run)

	resp := ts.api.Get("/api/v1/forecasts/" + run.ID + "/csv")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "order-sheet-2026-08-24.csv")

	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Item,Weekly Baking,Mon,Tue,Wed,Thu,Fri,Sat,Notes", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Sourdough Loaf,240,40,40,40,40,40,40"))
}
