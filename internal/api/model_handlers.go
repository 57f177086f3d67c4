package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/service"
)

func (s *Server) registerModelRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "trainModels",
		Method:      http.MethodPost,
		Path:        "/api/v1/models/train",
		Summary:     "Train models",
		Description: "Trains per-item demand models for every active item with enough history",
		Tags:        []string{"Models"},
	}, s.handleTrainModels)

	huma.Register(s.api, huma.Operation{
		OperationID: "trainItemModel",
		Method:      http.MethodPost,
		Path:        "/api/v1/models/{itemId}/train",
		Summary:     "Train one item's model",
		Description: "Trains a single item's demand model on its full history",
		Tags:        []string{"Models"},
	}, s.handleTrainItemModel)

	huma.Register(s.api, huma.Operation{
		OperationID: "getModel",
		Method:      http.MethodGet,
		Path:        "/api/v1/models/{itemId}",
		Summary:     "Get model",
		Description: "Returns one item's stored model metadata",
		Tags:        []string{"Models"},
	}, s.handleGetModel)
}

// ModelResponse is stored model metadata; the raw weights stay internal.
type ModelResponse struct {
	ItemID        string   `json:"item_id" doc:"Item the model belongs to"`
	Algorithm     string   `json:"algorithm" doc:"Model algorithm"`
	Features      []string `json:"features" doc:"Feature columns, in training order"`
	Samples       int      `json:"samples" doc:"Training rows used"`
	CVError       *float64 `json:"cv_error,omitempty" doc:"Cross-validation MAPE as a fraction"`
	LowConfidence bool     `json:"low_confidence" doc:"True when CV error exceeded the ceiling"`
	TrainedAt     string   `json:"trained_at" doc:"When the model was fitted"`
}

func modelResponse(m *domain.ItemModel) ModelResponse {
	return ModelResponse{
		ItemID:        m.ItemID,
		Algorithm:     m.Algorithm,
		Features:      m.Features,
		Samples:       m.Samples,
		CVError:       m.CVError,
		LowConfidence: m.LowConfidence,
		TrainedAt:     m.TrainedAt.Format(time.RFC3339),
	}
}

// TrainOutcomeResponse reports one item from a bulk training run.
type TrainOutcomeResponse struct {
	ItemID   string   `json:"item_id" doc:"Item ID"`
	ItemName string   `json:"item_name" doc:"Item name"`
	Trained  bool     `json:"trained" doc:"Whether a model was fitted"`
	Samples  int      `json:"samples,omitempty" doc:"Training rows used"`
	CVError  *float64 `json:"cv_error,omitempty" doc:"Cross-validation MAPE as a fraction"`
}

type TrainModelsOutput struct {
	Body struct {
		Outcomes []TrainOutcomeResponse `json:"outcomes" doc:"Per-item training results"`
	}
}

func (s *Server) handleTrainModels(ctx context.Context, _ *struct{}) (*TrainModelsOutput, error) {
	outcomes, err := s.services.Training.TrainAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &TrainModelsOutput{}
	out.Body.Outcomes = make([]TrainOutcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		out.Body.Outcomes = append(out.Body.Outcomes, trainOutcomeResponse(o))
	}
	return out, nil
}

func trainOutcomeResponse(o service.TrainOutcome) TrainOutcomeResponse {
	return TrainOutcomeResponse{
		ItemID:   o.ItemID,
		ItemName: o.ItemName,
		Trained:  o.Trained,
		Samples:  o.Samples,
		CVError:  o.CVError,
	}
}

type TrainItemModelInput struct {
	ItemID string `path:"itemId" doc:"Item ID"`
}

type TrainItemModelOutput struct {
	Body ModelResponse
}

func (s *Server) handleTrainItemModel(ctx context.Context, input *TrainItemModelInput) (*TrainItemModelOutput, error) {
	m, err := s.services.Training.TrainItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	return &TrainItemModelOutput{Body: modelResponse(m)}, nil
}

type GetModelInput struct {
	ItemID string `path:"itemId" doc:"Item ID"`
}

type GetModelOutput struct {
	Body ModelResponse
}

func (s *Server) handleGetModel(ctx context.Context, input *GetModelInput) (*GetModelOutput, error) {
	m, err := s.services.Training.GetModel(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	return &GetModelOutput{Body: modelResponse(m)}, nil
}
