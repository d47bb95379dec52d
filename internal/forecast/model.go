// Package forecast holds the pluggable forecasting model behind the forecast
// stage and the memo cache that keeps repeated runs from refitting it.
package forecast

import (
	"context"
	"time"

	"go-sales-insights/internal/model"
)

// Observation is one daily value handed to a model.
type Observation struct {
	Date  time.Time
	Value float64
}

// Model fits a daily history and predicts. Output covers every history date
// followed by one point per day for periods days past the last one.
type Model interface {
	Forecast(ctx context.Context, history []Observation, periods int) ([]model.ForecastPoint, error)
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(ctx context.Context, history []Observation, periods int) ([]model.ForecastPoint, error)

func (f ModelFunc) Forecast(ctx context.Context, history []Observation, periods int) ([]model.ForecastPoint, error) {
	return f(ctx, history, periods)
}
