package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sales-insights/internal/forecast"
	"go-sales-insights/internal/model"
)

// stubModel predicts the last observed value for every future day.
type stubModel struct {
	calls   int
	history []forecast.Observation
	periods int
}

func (s *stubModel) Forecast(_ context.Context, history []forecast.Observation, periods int) ([]model.ForecastPoint, error) {
	s.calls++
	s.history, s.periods = history, periods
	last := history[len(history)-1]
	out := make([]model.ForecastPoint, periods)
	for i := range out {
		out[i] = model.ForecastPoint{Date: last.Date.AddDate(0, 0, i+1), Predicted: last.Value, LowerBound: last.Value, UpperBound: last.Value}
	}
	return out, nil
}

func TestForecaster_SinglePointNeverCallsModel(t *testing.T) {
	stub := &stubModel{}
	f := NewForecaster(stub, nil)

	series := []model.TimeSeriesPoint{{Date: day("2023-01-01"), Value: dec("100")}}
	_, _, err := f.Forecast(context.Background(), series, 3)

	var insufficient *model.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Need)
	assert.Equal(t, 1, insufficient.Got)
	assert.Zero(t, stub.calls)
}

func TestForecaster_SameDayPointsCountOnce(t *testing.T) {
	stub := &stubModel{}
	series := []model.TimeSeriesPoint{
		{Date: day("2023-01-01"), Value: dec("100")},
		{Date: day("2023-01-01"), Value: dec("50")},
	}
	_, _, err := NewForecaster(stub, nil).Forecast(context.Background(), series, 1)

	var insufficient *model.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
	assert.Zero(t, stub.calls)
}

func TestForecaster_ResamplesAndUsesThirtyDayMonths(t *testing.T) {
	stub := &stubModel{}
	series := []model.TimeSeriesPoint{
		{Date: day("2023-01-03"), Value: dec("5")},
		{Date: day("2023-01-01"), Value: dec("100")},
		{Date: day("2023-01-01"), Value: dec("20")},
	}

	pts, cached, err := NewForecaster(stub, nil).Forecast(context.Background(), series, 2)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, pts, 60)
	assert.Equal(t, 2*DaysPerMonth, stub.periods)
	assert.Equal(t, []forecast.Observation{
		{Date: day("2023-01-01"), Value: 120},
		{Date: day("2023-01-03"), Value: 5},
	}, stub.history, "gaps stay gaps")
}

func TestForecaster_CacheHit(t *testing.T) {
	stub := &stubModel{}
	cache := forecast.NewMemoryCache(0)
	f := NewForecaster(stub, cache)
	series := []model.TimeSeriesPoint{
		{Date: day("2023-01-01"), Value: dec("1")},
		{Date: day("2023-01-02"), Value: dec("2")},
	}

	first, cached, err := f.Forecast(context.Background(), series, 1)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := f.Forecast(context.Background(), series, 1)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, 1, cache.Len())
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]model.ForecastPoint, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, []model.ForecastPoint) error {
	return errors.New("connection refused")
}

func TestForecaster_CacheFailureIsNotFatal(t *testing.T) {
	stub := &stubModel{}
	series := []model.TimeSeriesPoint{
		{Date: day("2023-01-01"), Value: dec("1")},
		{Date: day("2023-01-02"), Value: dec("2")},
	}
	pts, _, err := NewForecaster(stub, failingCache{}).Forecast(context.Background(), series, 1)
	require.NoError(t, err)
	assert.Len(t, pts, 30)
}

func TestForecastRecords_ProfitMetric(t *testing.T) {
	stub := &stubModel{}
	records := []model.CanonicalRecord{rec("2023-01-01", "100", "20"), rec("2023-01-02", "300", "-5")}

	res, err := NewForecaster(stub, nil).ForecastRecords(context.Background(), records, model.FieldProfit, 1)
	require.NoError(t, err)
	assert.Equal(t, model.FieldProfit, res.Metric)
	assert.Equal(t, -5.0, stub.history[1].Value)
	require.Len(t, res.Monthly, 2, "January 3rd to February 1st")
	assert.Equal(t, day("2023-01-01"), res.Monthly[0].Month)
	assert.InDelta(t, -5*29, res.Monthly[0].Predicted, 1e-9)
	assert.InDelta(t, -5, res.Monthly[1].Predicted, 1e-9)
}

func TestMonthlyRollup(t *testing.T) {
	pts := []model.ForecastPoint{
		{Date: day("2023-02-01"), Predicted: 4},
		{Date: day("2023-01-30"), Predicted: 1},
		{Date: day("2023-01-31"), Predicted: 2},
	}
	assert.Equal(t, []model.MonthlyForecast{
		{Month: day("2023-01-01"), Predicted: 3},
		{Month: day("2023-02-01"), Predicted: 4},
	}, MonthlyRollup(pts))
	assert.Empty(t, MonthlyRollup(nil))
}
