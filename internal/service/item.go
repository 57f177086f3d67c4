package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/forecast"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/search"
	"github.com/bakesight/bakesight-server/internal/store"
)

// ItemService manages the product catalog: listing, search, aliases,
// merges, and baseline inspection.
type ItemService struct {
	store     store.Store
	index     *search.Index
	logger    *logger.Logger
	cfg       config.ForecastConfig
	estimator *forecast.Estimator
}

// NewItemService creates a new item service.
func NewItemService(st store.Store, index *search.Index, cfg config.ForecastConfig, log *logger.Logger) *ItemService {
	return &ItemService{
		store:     st,
		index:     index,
		logger:    log,
		cfg:       cfg,
		estimator: forecast.NewEstimator(cfg),
	}
}

// List returns the whole catalog ordered by name.
func (s *ItemService) List(ctx context.Context) ([]*domain.Item, error) {
	return s.store.ListItems(ctx)
}

// Get returns one item.
func (s *ItemService) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.store.GetItem(ctx, itemID)
}

// UpdateItemParams carries the mutable item settings; nil fields are
// left unchanged.
type UpdateItemParams struct {
	// MinBatch is the per-item batch floor; zero reverts to the
	// configured default.
	MinBatch *int
	Active   *bool
}

// Update changes an item's production settings.
func (s *ItemService) Update(ctx context.Context, itemID string, params UpdateItemParams) (*domain.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if params.MinBatch != nil {
		if *params.MinBatch < 0 {
			return nil, errors.Validationf("min batch %d is negative", *params.MinBatch)
		}
		item.MinBatch = *params.MinBatch
	}
	if params.Active != nil {
		item.Active = *params.Active
	}
	item.Touch()

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("updated item", "item_id", itemID, "min_batch", item.MinBatch, "active", item.Active)
	return item, nil
}

// Search finds catalog items by name or alias.
func (s *ItemService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	return s.index.Search(ctx, params)
}

// Aliases returns the normalized raw names mapped to an item.
func (s *ItemService) Aliases(ctx context.Context, itemID string) ([]string, error) {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.ListItemAliases(ctx, itemID)
}

// AddAlias maps a raw export name onto an item so future ingests
// resolve it without fuzzy matching.
func (s *ItemService) AddAlias(ctx context.Context, itemID, rawName string) error {
	norm := domain.NormalizeItemName(rawName)
	if norm == "" {
		return errors.Validation("empty alias")
	}
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return err
	}

	err := s.store.AddAlias(ctx, &domain.ItemAlias{
		Alias:     norm,
		ItemID:    itemID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	s.logger.Info("added item alias", "item_id", itemID, "alias", norm)
	return nil
}

// Merge folds the source item into the target: sales histories combine
// (overlapping days sum), the source's name becomes a target alias, and
// both items' models are dropped because their training data changed.
func (s *ItemService) Merge(ctx context.Context, sourceID, targetID string) (*domain.Item, error) {
	if sourceID == targetID {
		return nil, errors.Validation("cannot merge an item into itself")
	}
	if err := s.store.MergeItems(ctx, sourceID, targetID); err != nil {
		return nil, err
	}

	target, err := s.store.GetItem(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("load merged item: %w", err)
	}
	s.logger.Info("merged items", "source_id", sourceID, "target_id", targetID)
	return target, nil
}

// ItemBaseline is one item's current weekday baseline with the trailing
// statistics behind it, for inspection before a run is generated.
type ItemBaseline struct {
	ItemID    string                                     `json:"itemId"`
	ItemName  string                                     `json:"itemName"`
	Baselines [domain.DaysPerWeek]domain.WeekdayBaseline `json:"baselines"`
	Stats     [domain.DaysPerWeek]domain.WeekdayStats    `json:"stats"`
}

// Baseline computes an item's weekday baseline from its recent history.
func (s *ItemService) Baseline(ctx context.Context, itemID string) (*ItemBaseline, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	now := domain.DateOnly(time.Now().UTC())
	from := now.AddDate(0, 0, -7*s.cfg.LookbackWeeks)
	sales, err := s.store.ListSales(ctx, itemID, from, now)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	return &ItemBaseline{
		ItemID:    item.ID,
		ItemName:  item.CanonicalName,
		Baselines: s.estimator.Baselines(item.ID, sales),
		Stats:     s.estimator.Stats(sales),
	}, nil
}
