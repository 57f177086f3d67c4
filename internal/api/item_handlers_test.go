package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListItems(t *testing.T) {
	ts := setupTestServer(t)
	ts.uploadExport(t, "sales.csv", testExport)

	resp := ts.api.Get("/api/v1/items")
	assert.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Items []ItemResponse `json:"items"`
		Total uint64         `json:"total"`
	}
	decodeData(t, resp.Body.Bytes(), &body)
	require.Len(t, body.Items, 2)
	assert.Equal(t, uint64(2), body.Total)
	// Sorted by name.
	assert.Equal(t, "Almond Croissant", body.Items[0].CanonicalName)
	assert.Equal(t, "Sourdough Loaf", body.Items[1].CanonicalName)
	assert.True(t, body.Items[0].Active)
}

func TestSearchItems(t *testing.T) {
	ts := setupTestServer(t)
	ts.uploadExport(t, "sales.csv", testExport)

	resp := ts.api.Get("/api/v1/items?q=sourdough")
	assert.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Hits  []SearchHitResponse `json:"hits"`
		Total uint64              `json:"total"`
	}
	decodeData(t, resp.Body.Bytes(), &body)
	require.NotEmpty(t, body.Hits)
	assert.Equal(t, "Sourdough Loaf", body.Hits[0].Name)
}

func TestItemAliases(t *testing.T) {
	ts := setupTestServer(t)
	ts.uploadExport(t, "sales.csv", testExport)
	itemID := ts.itemIDByName(t, "Sourdough Loaf")

	post := ts.api.Post("/api/v1/items/"+itemID+"/aliases", map[string]any{
		"alias": "Sour Dough",
	})
	assert.Equal(t, http.StatusOK, post.Code)

	get := ts.api.Get("/api/v1/items/" + itemID + "/aliases")
	var body struct {
		Aliases []string `json:"aliases"`
	}
	decodeData(t, get.Body.Bytes(), &body)
	assert.Contains(t, body.Aliases, "sour dough")
	assert.Contains(t, body.Aliases, "sourdough loaf")
}

func TestUpdateItem_MinBatch(t *testing.T) {
	ts := setupTestServer(t)
	ts.uploadExport(t, "sales.csv", testExport)
	itemID := ts.itemIDByName(t, "Sourdough Loaf")

	resp := ts.api.Patch("/api/v1/items/"+itemID, map[string]any{
		"min_batch": 12,
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	var updated ItemResponse
	decodeData(t, resp.Body.Bytes(), &updated)
	assert.Equal(t, 12, updated.MinBatch)
	assert.True(t, updated.Active)

	get := ts.api.Get("/api/v1/items/" + itemID)
	var fetched ItemResponse
	decodeData(t, get.Body.Bytes(), &fetched)
	assert.Equal(t, 12, fetched.MinBatch)
}

func TestUpdateItem_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/items/item-missing", map[string]any{
		"min_batch": 6,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMergeItems(t *testing.T) {
	ts := setupTestServer(t)
	ts.uploadExport(t, "sales.csv", testExport)
	sourceID := ts.itemIDByName(t, "Almond Croissant")
	targetID := ts.itemIDByName(t, "Sourdough Loaf")

	resp := ts.api.Post("/api/v1/items/merge", map[string]any{
		"source_id": sourceID,
		"target_id": targetID,
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	var merged ItemResponse
	decodeData(t, resp.Body.Bytes(), &merged)
	assert.Equal(t, targetID, merged.ID)

	gone := ts.api.Get("/api/v1/items/" + sourceID)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestMergeItems_SelfMergeRejected(t *testing.T) {
	ts := setupTestServer(t)
	ts.uploadExport(t, "sales.csv", testExport)
	itemID := ts.itemIDByName(t, "Sourdough Loaf")

	resp := ts.api.Post("/api/v1/items/merge", map[string]any{
		"source_id": itemID,
		"target_id": itemID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetItemBaseline(t *testing.T) {
	ts := setupTestServer(t)
	ts.uploadExport(t, "sales.csv", testExport)
	itemID := ts.itemIDByName(t, "Sourdough Loaf")

	resp := ts.api.Get("/api/v1/items/" + itemID + "/baseline")
	assert.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		ItemID   string                    `json:"item_id"`
		ItemName string                    `json:"item_name"`
		Days     []WeekdayBaselineResponse `json:"days"`
	}
	decodeData(t, resp.Body.Bytes(), &body)
	assert.Equal(t, itemID, body.ItemID)
	assert.Equal(t, "Sourdough Loaf", body.ItemName)
	require.Len(t, body.Days, 6)
	assert.Equal(t, "Monday", body.Days[0].Day)
	assert.Equal(t, "Saturday", body.Days[5].Day)
}

// itemIDByName looks an item up through the list endpoint.
func (ts *testServer) itemIDByName(t *testing.T, name string) string {
	t.Helper()
	resp := ts.api.Get("/api/v1/items")
	var body struct {
		Items []ItemResponse `json:"items"`
	}
	decodeData(t, resp.Body.Bytes(), &body)
	for _, item := range body.Items {
		if item.CanonicalName == name {
			return item.ID
		}
	}
	t.Fatalf("item %q not found", name)
	return ""
}
