package providers

import (
	"github.com/samber/do/v2"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/resolver"
	"github.com/bakesight/bakesight-server/internal/service"
)

// ProvideIngestService provides the sales export ingestion service.
func ProvideIngestService(i do.Injector) (*service.IngestService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewIngestService(storeHandle.Store, cfg.Forecast, log)

	rules, err := resolver.LoadRules(cfg.Import.CanonRulesPath)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		svc.SetCanonRules(rules)
		log.Info("Loaded canonicalization rules", "count", len(rules), "path", cfg.Import.CanonRulesPath)
	}

	return svc, nil
}

// ProvideItemService provides the item catalog service.
func ProvideItemService(i do.Injector) (*service.ItemService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewItemService(storeHandle.Store, indexHandle.Index, cfg.Forecast, log), nil
}

// ProvideSignalService provides the weather and calendar signal service.
func ProvideSignalService(i do.Injector) (*service.SignalService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSignalService(storeHandle.Store, log), nil
}

// ProvideTrainingService provides the per-item model training service.
func ProvideTrainingService(i do.Injector) (*service.TrainingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTrainingService(storeHandle.Store, cfg.Forecast, log), nil
}

// ProvideForecastService provides the forecast generation service.
func ProvideForecastService(i do.Injector) (*service.ForecastService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewForecastService(storeHandle.Store, cfg.Forecast, log), nil
}

// ProvideRunService provides read access to stored forecast runs.
func ProvideRunService(i do.Injector) (*service.RunService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRunService(storeHandle.Store, log), nil
}
