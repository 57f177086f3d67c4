// Package di provides dependency injection configuration for the BakeSight server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/di/providers"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideIngestService)
	do.Provide(injector, providers.ProvideItemService)
	do.Provide(injector, providers.ProvideSignalService)
	do.Provide(injector, providers.ProvideTrainingService)
	do.Provide(injector, providers.ProvideForecastService)
	do.Provide(injector, providers.ProvideRunService)

	// Workers
	do.Provide(injector, providers.ProvideImportWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.IngestService](injector)
	_ = do.MustInvoke[*service.ItemService](injector)
	_ = do.MustInvoke[*service.SignalService](injector)
	_ = do.MustInvoke[*service.TrainingService](injector)
	_ = do.MustInvoke[*service.ForecastService](injector)
	_ = do.MustInvoke[*service.RunService](injector)

	// Workers
	_ = do.MustInvoke[*providers.ImportWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
