package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/bakesight/bakesight-server/internal/service"
)

func (s *Server) registerForecastRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "generateForecast",
		Method:      http.MethodPost,
		Path:        "/api/v1/forecasts",
		Summary:     "Generate forecast",
		Description: "Computes and records a new forecast run for one production week",
		Tags:        []string{"Forecasts"},
	}, s.handleGenerateForecast)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLatestForecast",
		Method:      http.MethodGet,
		Path:        "/api/v1/forecasts/latest",
		Summary:     "Get latest forecast",
		Description: "Returns the most recent run, or the latest run for a given week",
		Tags:        []string{"Forecasts"},
	}, s.handleGetLatestForecast)

	huma.Register(s.api, huma.Operation{
		OperationID: "listForecasts",
		Method:      http.MethodGet,
		Path:        "/api/v1/forecasts",
		Summary:     "List forecast runs",
		Description: "Returns every run recorded for one week, newest first",
		Tags:        []string{"Forecasts"},
	}, s.handleListForecasts)

	huma.Register(s.api, huma.Operation{
		OperationID: "getForecast",
		Method:      http.MethodGet,
		Path:        "/api/v1/forecasts/{id}",
		Summary:     "Get forecast run",
		Description: "Returns one run with its full item matrix and alerts",
		Tags:        []string{"Forecasts"},
	}, s.handleGetForecast)

	huma.Register(s.api, huma.Operation{
		OperationID: "getForecastCSV",
		Method:      http.MethodGet,
		Path:        "/api/v1/forecasts/{id}/csv",
		Summary:     "Download order sheet",
		Description: "Renders one run as the printable CSV order sheet",
		Tags:        []string{"Forecasts"},
	}, s.handleGetForecastCSV)
}

// ItemForecastResponse is one item's row in a forecast run.
type ItemForecastResponse struct {
	ItemID     string `json:"item_id" doc:"Item ID"`
	ItemName   string `json:"item_name" doc:"Item name"`
	Quantities []int  `json:"quantities" doc:"Per-day quantities, Monday through Saturday"`
	Total      int    `json:"total" doc:"Weekly total"`
	ModelUsed  bool   `json:"model_used" doc:"Whether a trained model contributed"`
	ColdStart  bool   `json:"cold_start,omitempty" doc:"True when the item has no history yet"`
	Note       string `json:"note,omitempty" doc:"Reviewer-facing note"`
}

// AlertResponse is one advisory flag on a run.
type AlertResponse struct {
	ItemID   string  `json:"item_id" doc:"Item ID"`
	ItemName string  `json:"item_name" doc:"Item name"`
	Day      string  `json:"day" doc:"Production weekday"`
	Reason   string  `json:"reason" doc:"Why the cell was flagged"`
	Forecast float64 `json:"forecast,omitempty" doc:"Flagged forecast value, pre-rounding"`
	Mean     float64 `json:"mean,omitempty" doc:"Trailing same-weekday mean"`
	StdDev   float64 `json:"std_dev,omitempty" doc:"Trailing same-weekday deviation"`
}

// ForecastRunResponse represents a recorded forecast run.
type ForecastRunResponse struct {
	ID        string                 `json:"id" doc:"Run ID"`
	WeekStart string                 `json:"week_start" doc:"Monday of the forecast week"`
	Alpha     float64                `json:"alpha" doc:"Model blend weight used"`
	UseModel  bool                   `json:"use_model" doc:"Whether model blending was requested"`
	Items     []ItemForecastResponse `json:"items" doc:"Per-item forecasts, sorted by name"`
	Alerts    []AlertResponse        `json:"alerts,omitempty" doc:"Advisory flags"`
	Note      string                 `json:"note,omitempty" doc:"Run note"`
	CreatedAt string                 `json:"created_at" doc:"When the run was recorded"`
}

func runResponse(run *domain.ForecastRun) ForecastRunResponse {
	resp := ForecastRunResponse{
		ID:        run.ID,
		WeekStart: domain.FormatDate(run.WeekStart),
		Alpha:     run.Alpha,
		UseModel:  run.UseModel,
		Note:      run.Note,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
		Items:     make([]ItemForecastResponse, 0, len(run.Items)),
	}
	for _, item := range run.Items {
		resp.Items = append(resp.Items, ItemForecastResponse{
			ItemID:     item.ItemID,
			ItemName:   item.ItemName,
			Quantities: item.Quantities[:],
			Total:      item.Total,
			ModelUsed:  item.ModelUsed,
			ColdStart:  item.ColdStart,
			Note:       item.Note,
		})
	}
	for _, alert := range run.Alerts {
		resp.Alerts = append(resp.Alerts, AlertResponse{
			ItemID:   alert.ItemID,
			ItemName: alert.ItemName,
			Day:      alert.Day.String(),
			Reason:   string(alert.Reason),
			Forecast: alert.Forecast,
			Mean:     alert.Mean,
			StdDev:   alert.StdDev,
		})
	}
	return resp
}

type GenerateForecastInput struct {
	Body struct {
		WeekStart string   `json:"week_start,omitempty" doc:"Monday to forecast (YYYY-MM-DD); empty means next Monday"`
		Alpha     *float64 `json:"alpha,omitempty" minimum:"0" maximum:"1" doc:"Model blend weight override"`
		UseModel  bool     `json:"use_model,omitempty" doc:"Blend trained models where available"`
		Note      string   `json:"note,omitempty" maxLength:"500" doc:"Note recorded on the run"`
	}
}

type GenerateForecastOutput struct {
	Status int
	Body   ForecastRunResponse
}

func (s *Server) handleGenerateForecast(ctx context.Context, input *GenerateForecastInput) (*GenerateForecastOutput, error) {
	params := service.GenerateParams{
		Alpha:    input.Body.Alpha,
		UseModel: input.Body.UseModel,
		Note:     input.Body.Note,
	}
	if input.Body.WeekStart != "" {
		weekStart, err := domain.ParseDate(input.Body.WeekStart)
		if err != nil {
			return nil, errors.Validationf("bad week start %q: want YYYY-MM-DD", input.Body.WeekStart)
		}
		params.WeekStart = weekStart
	}

	run, err := s.services.Forecast.Generate(ctx, params)
	if err != nil {
		return nil, err
	}

	return &GenerateForecastOutput{
		Status: http.StatusCreated,
		Body:   runResponse(run),
	}, nil
}

type GetLatestForecastInput struct {
	Week string `query:"week" doc:"Return the latest run for this week (YYYY-MM-DD, any day)"`
}

type GetLatestForecastOutput struct {
	Body ForecastRunResponse
}

func (s *Server) handleGetLatestForecast(ctx context.Context, input *GetLatestForecastInput) (*GetLatestForecastOutput, error) {
	var (
		run *domain.ForecastRun
		err error
	)
	if input.Week != "" {
		week, perr := domain.ParseDate(input.Week)
		if perr != nil {
			return nil, errors.Validationf("bad week %q: want YYYY-MM-DD", input.Week)
		}
		run, err = s.services.Run.LatestForWeek(ctx, week)
	} else {
		run, err = s.services.Run.Latest(ctx)
	}
	if err != nil {
		return nil, err
	}
	return &GetLatestForecastOutput{Body: runResponse(run)}, nil
}

type ListForecastsInput struct {
	Week string `query:"week" required:"true" doc:"Week to list runs for (YYYY-MM-DD, any day)"`
}

type ListForecastsOutput struct {
	Body struct {
		Runs []ForecastRunResponse `json:"runs" doc:"Runs for the week, newest first"`
	}
}

func (s *Server) handleListForecasts(ctx context.Context, input *ListForecastsInput) (*ListForecastsOutput, error) {
	week, err := domain.ParseDate(input.Week)
	if err != nil {
		return nil, errors.Validationf("bad week %q: want YYYY-MM-DD", input.Week)
	}

	runs, err := s.services.Run.List(ctx, week)
	if err != nil {
		return nil, err
	}

	out := &ListForecastsOutput{}
	out.Body.Runs = make([]ForecastRunResponse, 0, len(runs))
	for _, run := range runs {
		out.Body.Runs = append(out.Body.Runs, runResponse(run))
	}
	return out, nil
}

type GetForecastInput struct {
	ID string `path:"id" doc:"Run ID"`
}

type GetForecastOutput struct {
	Body ForecastRunResponse
}

func (s *Server) handleGetForecast(ctx context.Context, input *GetForecastInput) (*GetForecastOutput, error) {
	run, err := s.services.Run.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &GetForecastOutput{Body: runResponse(run)}, nil
}

type GetForecastCSVInput struct {
	ID string `path:"id" doc:"Run ID"`
}

// GetForecastCSVOutput streams the order sheet; it bypasses the JSON
// envelope.
type GetForecastCSVOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func (s *Server) handleGetForecastCSV(ctx context.Context, input *GetForecastCSVInput) (*GetForecastCSVOutput, error) {
	run, err := s.services.Run.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.services.Run.WriteCSV(&buf, run); err != nil {
		return nil, err
	}

	return &GetForecastCSVOutput{
		ContentType: "text/csv; charset=utf-8",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q",
			fmt.Sprintf("order-sheet-%s.csv", domain.FormatDate(run.WeekStart))),
		Body: buf.Bytes(),
	}, nil
}
