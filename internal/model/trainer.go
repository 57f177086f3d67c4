package model

import (
	"encoding/json/v2"
	"time"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/domain"
)

// Algorithm names the only algorithm this trainer produces.
const Algorithm = "ridge"

// Trainer fits per-item models from resolved sales history.
type Trainer struct {
	alpha          float64
	minSamples     int
	cvErrorCeiling float64
}

// NewTrainer builds a trainer from the forecast configuration.
func NewTrainer(cfg config.ForecastConfig) *Trainer {
	return &Trainer{
		alpha:          1.0,
		minSamples:     cfg.MinTrainSamples,
		cvErrorCeiling: cfg.CVErrorCeiling,
	}
}

// Train fits a ridge model for one item. Returns nil without error when
// the history is too short to train on; insufficient history is a
// state, not a failure. A model whose cross-validation error exceeds
// the ceiling is kept but flagged low-confidence so blending can
// discount it.
func (t *Trainer) Train(itemID string, sales []*domain.SaleRecord, sig Signals) (*domain.ItemModel, error) {
	x, y := buildTraining(sales, sig)
	if len(y) < t.minSamples {
		return nil, nil
	}

	params, err := fitRidge(x, y, t.alpha)
	if err != nil {
		return nil, err
	}
	cvError := crossValidate(x, y, t.alpha)

	blob, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	return &domain.ItemModel{
		ItemID:        itemID,
		Algorithm:     Algorithm,
		Parameters:    blob,
		Features:      FeatureNames,
		Samples:       len(y),
		CVError:       cvError,
		LowConfidence: cvError != nil && *cvError > t.cvErrorCeiling,
		TrainedAt:     time.Now().UTC(),
	}, nil
}
