package model

import (
	"encoding/json/v2"
	"slices"
	"sort"
	"time"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/errors"
)

// PredictWeek applies a stored model to one production week. history is
// the item's resolved sales leading up to weekStart; the rolling
// features for each upcoming day come from its same-weekday tail, the
// same windows training used. Predictions are clipped at zero.
func PredictWeek(m *domain.ItemModel, weekStart time.Time, history []*domain.SaleRecord, sig Signals) (*[domain.DaysPerWeek]float64, error) {
	var params parameters
	if err := json.Unmarshal(m.Parameters, &params); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "decoding model parameters")
	}
	if !slices.Equal(params.Features, FeatureNames) {
		return nil, errors.Internalf("model for %s was trained on a different feature schema", m.ItemID)
	}

	// Same-weekday history in date order, Sundays dropped.
	ordered := make([]*domain.SaleRecord, len(history))
	copy(ordered, history)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })
	var prior [domain.DaysPerWeek][]float64
	for _, s := range ordered {
		if day, ok := domain.WeekdayOf(s.Date); ok {
			prior[day] = append(prior[day], float64(s.Quantity))
		}
	}

	var out [domain.DaysPerWeek]float64
	for day := domain.Monday; day <= domain.Saturday; day++ {
		date := weekStart.AddDate(0, 0, int(day))
		row := buildFutureRow(date, day, prior[day], sig)
		yhat := params.predict(row)
		if yhat < 0 {
			yhat = 0
		}
		out[day] = yhat
	}
	return &out, nil
}
