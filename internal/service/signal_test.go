package service

import (
	"testing"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalService_WeatherUpsertReplacesByDate(t *testing.T) {
	st := newTestStore(t)
	svc := NewSignalService(st, newTestLogger())
	day := date(t, "2026-08-24")

	require.NoError(t, svc.UpsertWeather(t.Context(), []*domain.WeatherDay{
		{Date: day, MaxTemp: ptr(22.0), RainMM: ptr(0.0)},
	}))
	// A later feed for the same date wins.
	require.NoError(t, svc.UpsertWeather(t.Context(), []*domain.WeatherDay{
		{Date: day, MaxTemp: ptr(28.5), RainMM: ptr(4.2)},
	}))

	days, err := svc.ListWeather(t.Context(), day, day)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.InDelta(t, 28.5, *days[0].MaxTemp, 1e-9)
	assert.InDelta(t, 4.2, *days[0].RainMM, 1e-9)
}

func TestSignalService_WeatherValidation(t *testing.T) {
	svc := NewSignalService(newTestStore(t), newTestLogger())

	err := svc.UpsertWeather(t.Context(), nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	err = svc.UpsertWeather(t.Context(), []*domain.WeatherDay{{MaxTemp: ptr(20.0)}})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSignalService_Events(t *testing.T) {
	st := newTestStore(t)
	svc := NewSignalService(st, newTestLogger())
	day := date(t, "2026-12-25")

	require.NoError(t, svc.UpsertEvents(t.Context(), []*domain.CalendarEvent{
		{Date: day, Name: "Christmas Day", Kind: domain.EventHoliday, Multiplier: 1.4},
		{Date: day, Name: "Market Day", Multiplier: 1.1},
	}))

	events, err := svc.ListEvents(t.Context(), day, day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Kind defaults to a local event when the upload omits it.
	for _, ev := range events {
		if ev.Name == "Market Day" {
			assert.Equal(t, domain.EventLocal, ev.Kind)
		}
	}
}

func TestSignalService_EventValidation(t *testing.T) {
	svc := NewSignalService(newTestStore(t), newTestLogger())
	day := date(t, "2026-12-25")

	err := svc.UpsertEvents(t.Context(), []*domain.CalendarEvent{{Date: day, Name: "Sale", Multiplier: 0}})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	err = svc.UpsertEvents(t.Context(), []*domain.CalendarEvent{{Name: "No Date", Multiplier: 1.2}})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func ptr[T any](v T) *T { return &v }
