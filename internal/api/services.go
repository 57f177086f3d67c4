package api

import (
	"github.com/bakesight/bakesight-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Ingest   *service.IngestService
	Item     *service.ItemService
	Signal   *service.SignalService
	Training *service.TrainingService
	Forecast *service.ForecastService
	Run      *service.RunService
}
