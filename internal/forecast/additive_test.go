package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sales-insights/internal/model"
)

func linearHistory(n int, start time.Time, intercept, slope float64) []Observation {
	out := make([]Observation, n)
	for i := range out {
		out[i] = Observation{Date: start.AddDate(0, 0, i), Value: intercept + slope*float64(i)}
	}
	return out
}

func TestAdditive_RecoversLinearTrend(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	history := linearHistory(60, start, 100, 2)

	pts, err := NewAdditive().Forecast(context.Background(), history, 30)
	require.NoError(t, err)
	require.Len(t, pts, 90)

	for i, p := range pts {
		assert.Equal(t, start.AddDate(0, 0, i), p.Date)
		assert.InDelta(t, 100+2*float64(i), p.Predicted, 1e-6, i)
		assert.LessOrEqual(t, p.LowerBound, p.Predicted)
		assert.GreaterOrEqual(t, p.UpperBound, p.Predicted)
	}
}

func TestAdditive_WeeklyPattern(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC) // Monday
	history := make([]Observation, 28)
	for i := range history {
		v := 100.0
		if d := start.AddDate(0, 0, i).Weekday(); d == time.Saturday || d == time.Sunday {
			v = 40
		}
		history[i] = Observation{Date: start.AddDate(0, 0, i), Value: v}
	}

	pts, err := NewAdditive().Forecast(context.Background(), history, 7)
	require.NoError(t, err)

	future := pts[len(history):]
	require.Len(t, future, 7)
	for _, p := range future {
		if p.Date.Weekday() == time.Saturday || p.Date.Weekday() == time.Sunday {
			assert.Less(t, p.Predicted, 70.0, p.Date)
		} else {
			assert.Greater(t, p.Predicted, 70.0, p.Date)
		}
	}

	flat, err := (&Additive{}).Forecast(context.Background(), history, 7)
	require.NoError(t, err)
	assert.InDelta(t, flat[len(history)].Predicted, flat[len(history)+5].Predicted, 5, "no weekday effect when disabled")
}

func TestAdditive_BandWidensWithHorizon(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	history := []Observation{
		{Date: start, Value: 10},
		{Date: start.AddDate(0, 0, 1), Value: 30},
		{Date: start.AddDate(0, 0, 2), Value: 15},
		{Date: start.AddDate(0, 0, 4), Value: 40},
	}
	pts, err := NewAdditive().Forecast(context.Background(), history, 10)
	require.NoError(t, err)

	first := pts[len(history)]
	last := pts[len(pts)-1]
	assert.Greater(t, last.UpperBound-last.LowerBound, first.UpperBound-first.LowerBound)
}

func TestAdditive_Errors(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewAdditive().Forecast(context.Background(), linearHistory(1, start, 1, 0), 5)
	var insufficient *model.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)

	_, err = NewAdditive().Forecast(context.Background(), linearHistory(3, start, 1, 0), -1)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewAdditive().Forecast(ctx, linearHistory(3, start, 1, 0), 5)
	assert.ErrorIs(t, err, context.Canceled)
}
