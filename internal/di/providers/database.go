package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/search"
	"github.com/bakesight/bakesight-server/internal/store"
	"github.com/bakesight/bakesight-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite-backed store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "bakesight.db")
	st, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: st}, nil
}

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve catalog index and wires it to
// the store so item writes are indexed automatically.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.New(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.Count()
	log.Info("Search index initialized", "documents", docCount)

	// An empty index alongside a populated catalog means the index
	// directory was lost or the mapping version bumped.
	if docCount == 0 {
		go func() {
			if err := index.Rebuild(context.Background(), storeHandle.Store); err != nil {
				log.Error("Search index rebuild failed", "error", err)
			}
		}()
	}

	return &SearchIndexHandle{Index: index}, nil
}
