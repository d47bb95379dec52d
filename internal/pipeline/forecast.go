package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"go-sales-insights/internal/forecast"
	"go-sales-insights/internal/model"
)

// DaysPerMonth is the block length used for the horizon; months are not
// calendar months here.
const DaysPerMonth = 30

// ForecastResult is the daily forecast and its month-by-month view
type ForecastResult struct {
	Metric        model.Field             `json:"metric"`
	HorizonMonths int                     `json:"horizon_months"`
	Points        []model.ForecastPoint   `json:"points"`
	Monthly       []model.MonthlyForecast `json:"monthly"`
	Cached        bool                    `json:"cached"`
}

// Forecaster wraps a forecast.Model with the input contract and memoisation.
type Forecaster struct {
	model forecast.Model
	cache forecast.Cache
}

// NewForecaster builds a Forecaster. A nil model uses forecast.NewAdditive;
// a nil cache disables memoisation.
func NewForecaster(m forecast.Model, c forecast.Cache) *Forecaster {
	if m == nil {
		m = forecast.NewAdditive()
	}
	return &Forecaster{model: m, cache: c}
}

// Forecast resamples series to one value per calendar day and predicts
// horizonMonths*30 days past its last date. Fewer than two distinct dates
// fail with InsufficientDataError before the model is called.
func (f *Forecaster) Forecast(ctx context.Context, series []model.TimeSeriesPoint, horizonMonths int) ([]model.ForecastPoint, bool, error) {
	history := resampleDaily(series)
	if len(history) < 2 {
		return nil, false, &model.InsufficientDataError{Operation: "forecast", Need: 2, Got: len(history)}
	}
	periods := horizonMonths * DaysPerMonth
	key := forecast.Key(history, periods)

	if f.cache != nil {
		pts, ok, err := f.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("forecast cache lookup failed")
		} else if ok {
			log.Debug().Str("key", key).Msg("forecast cache hit")
			return pts, true, nil
		}
	}

	start := time.Now()
	pts, err := f.model.Forecast(ctx, history, periods)
	if err != nil {
		return nil, false, err
	}
	log.Info().
		Str("stage", "forecast").
		Int("history_days", len(history)).
		Int("periods", periods).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("📈 forecast computed")

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, pts); err != nil {
			log.Warn().Err(err).Msg("forecast cache store failed")
		}
	}
	return pts, false, nil
}

// ForecastRecords forecasts the daily sum of metric.
func (f *Forecaster) ForecastRecords(ctx context.Context, records []model.CanonicalRecord, metric model.Field, horizonMonths int) (*ForecastResult, error) {
	daily, err := SeriesByDate(records, model.GranularityDay, metric)
	if err != nil {
		return nil, err
	}
	pts, cached, err := f.Forecast(ctx, daily, horizonMonths)
	if err != nil {
		return nil, err
	}
	return &ForecastResult{
		Metric:        metric,
		HorizonMonths: horizonMonths,
		Points:        pts,
		Monthly:       MonthlyRollup(pts),
		Cached:        cached,
	}, nil
}

// MonthlyRollup sums predicted values per calendar month, ascending.
func MonthlyRollup(points []model.ForecastPoint) []model.MonthlyForecast {
	sums := make(map[time.Time]float64)
	for _, p := range points {
		m := time.Date(p.Date.Year(), p.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		sums[m] += p.Predicted
	}
	out := make([]model.MonthlyForecast, 0, len(sums))
	for m, v := range sums {
		out = append(out, model.MonthlyForecast{Month: m, Predicted: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// resampleDaily sums points sharing a calendar day. Gaps are kept as gaps.
func resampleDaily(series []model.TimeSeriesPoint) []forecast.Observation {
	sums := make(map[time.Time]decimal.Decimal)
	for _, p := range series {
		sums[truncateDay(p.Date)] = sums[truncateDay(p.Date)].Add(p.Value)
	}
	out := make([]forecast.Observation, 0, len(sums))
	for d, v := range sums {
		out = append(out, forecast.Observation{Date: d, Value: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
