package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/bakesight/bakesight-server/internal/api"
	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Ingest:   do.MustInvoke[*service.IngestService](i),
		Item:     do.MustInvoke[*service.ItemService](i),
		Signal:   do.MustInvoke[*service.SignalService](i),
		Training: do.MustInvoke[*service.TrainingService](i),
		Forecast: do.MustInvoke[*service.ForecastService](i),
		Run:      do.MustInvoke[*service.RunService](i),
	}

	handler := api.NewServer(cfg, storeHandle.Store, services, indexHandle.Index, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
