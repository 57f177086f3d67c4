package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
)

func (s *Server) registerSignalRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "uploadWeather",
		Method:      http.MethodPost,
		Path:        "/api/v1/signals/weather",
		Summary:     "Upload weather feed",
		Description: "Stores forecast weather days; same-date entries are replaced",
		Tags:        []string{"Signals"},
	}, s.handleUploadWeather)

	huma.Register(s.api, huma.Operation{
		OperationID: "listWeather",
		Method:      http.MethodGet,
		Path:        "/api/v1/signals/weather",
		Summary:     "List weather days",
		Description: "Returns stored weather days in a date range",
		Tags:        []string{"Signals"},
	}, s.handleListWeather)

	huma.Register(s.api, huma.Operation{
		OperationID: "uploadEvents",
		Method:      http.MethodPost,
		Path:        "/api/v1/signals/events",
		Summary:     "Upload event calendar",
		Description: "Stores holiday and local event days, keyed by date and name",
		Tags:        []string{"Signals"},
	}, s.handleUploadEvents)

	huma.Register(s.api, huma.Operation{
		OperationID: "listEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/signals/events",
		Summary:     "List calendar events",
		Description: "Returns stored calendar events in a date range",
		Tags:        []string{"Signals"},
	}, s.handleListEvents)
}

// WeatherDayRequest is one day of a weather feed upload.
type WeatherDayRequest struct {
	Date    string   `json:"date" doc:"Date (YYYY-MM-DD)"`
	MaxTemp *float64 `json:"max_temp,omitempty" doc:"Forecast daily maximum, Celsius"`
	RainMM  *float64 `json:"rain_mm,omitempty" doc:"Forecast rainfall, millimetres"`
	Source  string   `json:"source,omitempty" doc:"Feed the day came from"`
}

type UploadWeatherInput struct {
	Body struct {
		Days []WeatherDayRequest `json:"days" minItems:"1" doc:"Weather days to store"`
	}
}

type UploadWeatherOutput struct {
	Body struct {
		Stored int `json:"stored" doc:"Days written"`
	}
}

func (s *Server) handleUploadWeather(ctx context.Context, input *UploadWeatherInput) (*UploadWeatherOutput, error) {
	days := make([]*domain.WeatherDay, 0, len(input.Body.Days))
	for _, d := range input.Body.Days {
		date, err := domain.ParseDate(d.Date)
		if err != nil {
			return nil, errors.Validationf("bad weather date %q: want YYYY-MM-DD", d.Date)
		}
		days = append(days, &domain.WeatherDay{
			Date:    date,
			MaxTemp: d.MaxTemp,
			RainMM:  d.RainMM,
			Source:  d.Source,
		})
	}

	if err := s.services.Signal.UpsertWeather(ctx, days); err != nil {
		return nil, err
	}

	out := &UploadWeatherOutput{}
	out.Body.Stored = len(days)
	return out, nil
}

// WeatherDayResponse mirrors WeatherDayRequest for reads.
type WeatherDayResponse = WeatherDayRequest

type ListWeatherInput struct {
	From string `query:"from" doc:"Range start (YYYY-MM-DD)"`
	To   string `query:"to" doc:"Range end (YYYY-MM-DD)"`
}

type ListWeatherOutput struct {
	Body struct {
		Days []WeatherDayResponse `json:"days" doc:"Stored weather days"`
	}
}

func (s *Server) handleListWeather(ctx context.Context, input *ListWeatherInput) (*ListWeatherOutput, error) {
	from, to, err := parseDateRange(input.From, input.To)
	if err != nil {
		return nil, err
	}

	days, err := s.services.Signal.ListWeather(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := &ListWeatherOutput{}
	out.Body.Days = make([]WeatherDayResponse, 0, len(days))
	for _, d := range days {
		out.Body.Days = append(out.Body.Days, WeatherDayResponse{
			Date:    domain.FormatDate(d.Date),
			MaxTemp: d.MaxTemp,
			RainMM:  d.RainMM,
			Source:  d.Source,
		})
	}
	return out, nil
}

// CalendarEventRequest is one event in a calendar upload.
type CalendarEventRequest struct {
	Date       string  `json:"date" doc:"Date (YYYY-MM-DD)"`
	Kind       string  `json:"kind,omitempty" doc:"Event kind: holiday or local, defaults to local"`
	Name       string  `json:"name" minLength:"1" doc:"Event name"`
	Multiplier float64 `json:"multiplier" exclusiveMinimum:"0" doc:"Demand multiplier, 1.0 is neutral"`
}

type UploadEventsInput struct {
	Body struct {
		Events []CalendarEventRequest `json:"events" minItems:"1" doc:"Calendar events to store"`
	}
}

type UploadEventsOutput struct {
	Body struct {
		Stored int `json:"stored" doc:"Events written"`
	}
}

func (s *Server) handleUploadEvents(ctx context.Context, input *UploadEventsInput) (*UploadEventsOutput, error) {
	events := make([]*domain.CalendarEvent, 0, len(input.Body.Events))
	for _, ev := range input.Body.Events {
		date, err := domain.ParseDate(ev.Date)
		if err != nil {
			return nil, errors.Validationf("bad event date %q: want YYYY-MM-DD", ev.Date)
		}
		events = append(events, &domain.CalendarEvent{
			Date:       date,
			Kind:       domain.EventKind(ev.Kind),
			Name:       ev.Name,
			Multiplier: ev.Multiplier,
		})
	}

	if err := s.services.Signal.UpsertEvents(ctx, events); err != nil {
		return nil, err
	}

	out := &UploadEventsOutput{}
	out.Body.Stored = len(events)
	return out, nil
}

// CalendarEventResponse mirrors CalendarEventRequest for reads.
type CalendarEventResponse = CalendarEventRequest

type ListEventsInput struct {
	From string `query:"from" doc:"Range start (YYYY-MM-DD)"`
	To   string `query:"to" doc:"Range end (YYYY-MM-DD)"`
}

type ListEventsOutput struct {
	Body struct {
		Events []CalendarEventResponse `json:"events" doc:"Stored calendar events"`
	}
}

func (s *Server) handleListEvents(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
	from, to, err := parseDateRange(input.From, input.To)
	if err != nil {
		return nil, err
	}

	events, err := s.services.Signal.ListEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := &ListEventsOutput{}
	out.Body.Events = make([]CalendarEventResponse, 0, len(events))
	for _, ev := range events {
		out.Body.Events = append(out.Body.Events, CalendarEventResponse{
			Date:       domain.FormatDate(ev.Date),
			Kind:       string(ev.Kind),
			Name:       ev.Name,
			Multiplier: ev.Multiplier,
		})
	}
	return out, nil
}

// parseDateRange parses optional from/to query dates, defaulting to an
// unbounded range.
func parseDateRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		from, err = domain.ParseDate(fromStr)
		if err != nil {
			return from, to, errors.Validationf("bad from date %q: want YYYY-MM-DD", fromStr)
		}
	}
	if toStr != "" {
		to, err = domain.ParseDate(toStr)
		if err != nil {
			return from, to, errors.Validationf("bad to date %q: want YYYY-MM-DD", toStr)
		}
	} else {
		// Far-future sentinel so an open range returns everything.
		to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return from, to, nil
}
