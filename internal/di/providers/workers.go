package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/importwatch"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/service"
)

// ImportWatcherHandle wraps the inbox watcher with its context for
// lifecycle management. Watcher is nil when no inbox is configured.
type ImportWatcherHandle struct {
	Watcher *importwatch.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ImportWatcherHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideImportWatcher provides the import inbox watcher. An empty
// inbox path disables it; uploads via the API still work.
func ProvideImportWatcher(i do.Injector) (*ImportWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Import.InboxPath == "" {
		log.Info("Import inbox disabled - no path configured")
		return &ImportWatcherHandle{}, nil
	}

	ingestService := do.MustInvoke[*service.IngestService](i)

	w, err := importwatch.New(cfg.Import.InboxPath, ingestService, log, importwatch.Options{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Error("Import inbox watcher stopped", "error", err)
		}
	}()

	return &ImportWatcherHandle{Watcher: w, cancel: cancel}, nil
}
