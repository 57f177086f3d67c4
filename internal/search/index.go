// Package search provides full-text catalog search using Bleve. Items
// are indexed with their canonical name and every known alias, so a
// search for any spelling the tills ever produced finds the product.
package search

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/store"
)

// Index wraps a Bleve index with catalog-specific operations.
//
// Thread safety: all public methods are safe for concurrent use. The
// mutex guards the index handle during rebuilds.
type Index struct {
	index  bleve.Index
	path   string
	logger *logger.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string
	Logger   *logger.Logger
}

// mappingVersion is bumped whenever the index mapping changes, which
// forces a rebuild from the catalog on startup.
const mappingVersion = "1"

// itemDocument is the indexed shape of a catalog item.
type itemDocument struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Category string   `json:"category,omitempty"`
	Active   bool     `json:"active"`
}

func (d *itemDocument) toMap() map[string]any {
	m := map[string]any{
		"name":   d.Name,
		"active": d.Active,
	}
	if len(d.Aliases) > 0 {
		m["aliases"] = d.Aliases
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	return m
}

// New opens the search index at opts.DataPath, creating or rebuilding
// it when missing, corrupted, or built with an outdated mapping.
func New(opts Options) (*Index, error) {
	if opts.Logger == nil {
		opts.Logger = logger.New(logger.Config{Writer: io.Discard, Format: "json"})
	}

	indexPath := filepath.Join(opts.DataPath, "catalog.bleve")
	versionPath := filepath.Join(opts.DataPath, "catalog.version")

	var index bleve.Index
	recreate := false

	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(version) != mappingVersion {
			opts.Logger.Info("search index mapping changed, rebuilding", "new_version", mappingVersion)
			recreate = true
		} else {
			index, err = bleve.Open(indexPath)
			if err != nil {
				opts.Logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				recreate = true
			}
		}
	}

	if recreate {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0644); err != nil {
			opts.Logger.Warn("failed to write search version file", "error", err)
		}
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: opts.Logger,
	}, nil
}

// Close closes the index and releases its resources.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

// IndexItem indexes one item with its aliases, replacing any previous
// document for the same ID.
func (i *Index) IndexItem(item *domain.Item, aliases []string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	doc := &itemDocument{
		Name:     item.CanonicalName,
		Aliases:  aliases,
		Category: item.Category,
		Active:   item.Active,
	}
	return i.index.Index(item.ID, doc.toMap())
}

// DeleteItem removes an item from the index.
func (i *Index) DeleteItem(id string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Delete(id)
}

// Count returns the number of indexed items.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// Rebuild reindexes the whole catalog from the store in one batch.
// Called on startup so the index always reflects the database, whatever
// happened to the index files in between.
func (i *Index) Rebuild(ctx context.Context, st store.Store) error {
	items, err := st.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	for _, item := range items {
		aliases, err := st.ListItemAliases(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("list aliases for %s: %w", item.ID, err)
		}
		doc := &itemDocument{
			Name:     item.CanonicalName,
			Aliases:  aliases,
			Category: item.Category,
			Active:   item.Active,
		}
		if err := batch.Index(item.ID, doc.toMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", item.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	i.logger.Info("rebuilt search index", "items", len(items))
	return nil
}
