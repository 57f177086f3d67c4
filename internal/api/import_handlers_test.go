package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadImport(t *testing.T) {
	ts := setupTestServer(t)

	batch := ts.uploadExport(t, "sales_w34.csv", testExport)
	assert.Equal(t, "sales_w34.csv", batch.Filename)
	assert.Equal(t, 4, batch.RowsRead)
	assert.Equal(t, 4, batch.RowsKept)
	assert.Equal(t, 2, batch.ItemsCreated)
	assert.Equal(t, "2026-08-17", batch.FirstDate)
	assert.Equal(t, "2026-08-18", batch.LastDate)
}

func TestUploadImport_SchemaRejected(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/imports?filename=junk.csv",
		"Content-Type: text/csv", strings.NewReader("Foo,Bar\n1,2\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	env := decodeData(t, resp.Body.Bytes(), nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SCHEMA", env.Error.Code)

	// Nothing was recorded.
	list := ts.api.Get("/api/v1/imports")
	var body struct {
		Imports []ImportBatchResponse `json:"imports"`
	}
	decodeData(t, list.Body.Bytes(), &body)
	assert.Empty(t, body.Imports)
}

func TestListAndGetImports(t *testing.T) {
	ts := setupTestServer(t)

	batch := ts.uploadExport(t, "sales_w34.csv", testExport)

	list := ts.api.Get("/api/v1/imports")
	assert.Equal(t, http.StatusOK, list.Code)
	var body struct {
		Imports []ImportBatchResponse `json:"imports"`
	}
	decodeData(t, list.Body.Bytes(), &body)
	require.Len(t, body.Imports, 1)
	assert.Equal(t, batch.ID, body.Imports[0].ID)

	get := ts.api.Get("/api/v1/imports/" + batch.ID)
	assert.Equal(t, http.StatusOK, get.Code)
	var got ImportBatchResponse
	decodeData(t, get.Body.Bytes(), &got)
	assert.Equal(t, batch.Filename, got.Filename)

	missing := ts.api.Get("/api/v1/imports/imp-missing")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestUploadImport_RateLimited(t *testing.T) {
	ts := setupTestServer(t)
	// One upload per minute with burst 1.
	ts.importLimiter = NewRateLimiter(1, time.Minute, 1)

	first := ts.api.Post("/api/v1/imports?filename=a.csv",
		"Content-Type: text/csv", strings.NewReader(testExport))
	assert.Equal(t, http.StatusOK, first.Code)

	second := ts.api.Post("/api/v1/imports?filename=b.csv",
		"Content-Type: text/csv", strings.NewReader(testExport))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
