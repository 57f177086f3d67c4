// Package store defines the persistence interface for the BakeSight server.
package store

import (
	"context"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Items and aliases
	CreateItem(ctx context.Context, item *domain.Item) error
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	GetItemByName(ctx context.Context, name string) (*domain.Item, error)
	UpdateItem(ctx context.Context, item *domain.Item) error
	ListItems(ctx context.Context) ([]*domain.Item, error)
	AddAlias(ctx context.Context, alias *domain.ItemAlias) error
	ListAliases(ctx context.Context) ([]*domain.ItemAlias, error)
	ListItemAliases(ctx context.Context, itemID string) ([]string, error)
	MergeItems(ctx context.Context, sourceID, targetID string) error

	// Sales
	AppendSales(ctx context.Context, records []*domain.SaleRecord) error
	ListSales(ctx context.Context, itemID string, from, to time.Time) ([]*domain.SaleRecord, error)
	ListAllSales(ctx context.Context, from, to time.Time) ([]*domain.SaleRecord, error)
	LatestSaleDate(ctx context.Context) (time.Time, error)
	CountSales(ctx context.Context, itemID string) (int, error)

	// Import batches
	CreateImportBatch(ctx context.Context, batch *domain.ImportBatch) error
	GetImportBatch(ctx context.Context, id string) (*domain.ImportBatch, error)
	ListImportBatches(ctx context.Context) ([]*domain.ImportBatch, error)

	// Models
	SaveModel(ctx context.Context, model *domain.ItemModel) error
	GetModel(ctx context.Context, itemID string) (*domain.ItemModel, error)
	ListModels(ctx context.Context) ([]*domain.ItemModel, error)
	DeleteModel(ctx context.Context, itemID string) error

	// Signals
	UpsertWeather(ctx context.Context, days []*domain.WeatherDay) error
	ListWeather(ctx context.Context, from, to time.Time) ([]*domain.WeatherDay, error)
	UpsertEvents(ctx context.Context, events []*domain.CalendarEvent) error
	ListEvents(ctx context.Context, from, to time.Time) ([]*domain.CalendarEvent, error)

	// Forecast runs
	CreateForecastRun(ctx context.Context, run *domain.ForecastRun) error
	GetForecastRun(ctx context.Context, id string) (*domain.ForecastRun, error)
	ListForecastRuns(ctx context.Context, weekStart time.Time) ([]*domain.ForecastRun, error)
	LatestForecastRun(ctx context.Context) (*domain.ForecastRun, error)
	LatestForecastRunForWeek(ctx context.Context, weekStart time.Time) (*domain.ForecastRun, error)
}

// SearchIndexer maintains the item search index as the catalog changes.
// The store calls it after item writes commit; implementations must be
// safe for concurrent use.
type SearchIndexer interface {
	IndexItem(item *domain.Item, aliases []string) error
	DeleteItem(id string) error
}

// NoopSearchIndexer is a SearchIndexer that does nothing, used before the
// search index is wired up and in tests.
type NoopSearchIndexer struct{}

// NewNoopSearchIndexer creates a no-op search indexer.
func NewNoopSearchIndexer() *NoopSearchIndexer { return &NoopSearchIndexer{} }

// IndexItem does nothing.
func (*NoopSearchIndexer) IndexItem(*domain.Item, []string) error { return nil }

// DeleteItem does nothing.
func (*NoopSearchIndexer) DeleteItem(string) error { return nil }
