package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"go-sales-insights/internal/model"
)

const (
	MinSensitivity     = 10
	MaxSensitivity     = 100
	DefaultSensitivity = 30
)

// ClassifyAnomalies labels each point against the series mean:
//
//	threshold = mean * sensitivity / 100
//	Spike  if value > mean + threshold
//	Drop   if value < mean - threshold
//	Normal otherwise
//
// The mean keeps its sign, so a negative mean inverts the bands. An empty
// series yields an empty result and a single point is Normal.
func ClassifyAnomalies(series []model.TimeSeriesPoint, sensitivity int) ([]model.AnomalyPoint, error) {
	if sensitivity < MinSensitivity || sensitivity > MaxSensitivity {
		return nil, &model.InvalidParamError{
			Param:  "sensitivity",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinSensitivity, MaxSensitivity, sensitivity),
		}
	}

	out := make([]model.AnomalyPoint, len(series))
	if len(series) == 0 {
		return out, nil
	}
	if len(series) == 1 {
		out[0] = model.AnomalyPoint{Month: series[0].Date, Value: series[0].Value, Label: model.AnomalyNormal}
		return out, nil
	}

	sum := decimal.Zero
	for _, p := range series {
		sum = sum.Add(p.Value)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(series))))
	threshold := mean.Mul(decimal.NewFromInt(int64(sensitivity))).Div(decimal.NewFromInt(100))
	upper, lower := mean.Add(threshold), mean.Sub(threshold)

	for i, p := range series {
		label := model.AnomalyNormal
		switch {
		case p.Value.GreaterThan(upper):
			label = model.AnomalySpike
		case p.Value.LessThan(lower):
			label = model.AnomalyDrop
		}
		out[i] = model.AnomalyPoint{Month: p.Date, Value: p.Value, Label: label}
	}
	return out, nil
}
