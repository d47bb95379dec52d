package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"go-sales-insights/internal/model"
)

// z-score of the 10th/90th percentile, giving an 80% band
const bandZ = 1.2815515655446004

// Additive is a linear trend plus day-of-week seasonality with an 80%
// residual band that widens with distance past the history.
type Additive struct {
	// Weekly turns the day-of-week component on. It is ignored when the
	// history spans less than two weeks.
	Weekly bool
}

// NewAdditive returns the default model.
func NewAdditive() *Additive {
	return &Additive{Weekly: true}
}

// Forecast implements Model.
func (a *Additive) Forecast(ctx context.Context, history []Observation, periods int) ([]model.ForecastPoint, error) {
	if len(history) < 2 {
		return nil, &model.InsufficientDataError{Operation: "forecast", Need: 2, Got: len(history)}
	}
	if periods < 0 {
		return nil, fmt.Errorf("periods must not be negative, got %d", periods)
	}

	base := history[0].Date
	x := make([]float64, len(history))
	y := make([]float64, len(history))
	for i, o := range history {
		x[i] = daysBetween(base, o.Date)
		y[i] = o.Value
	}

	slope, intercept := linearRegression(x, y)

	var seasonal [7]float64
	span := x[len(x)-1] - x[0]
	if a.Weekly && span >= 14 {
		seasonal = weekdayEffects(history, x, slope, intercept)
	}

	var sumSq float64
	for i, o := range history {
		r := y[i] - (slope*x[i] + intercept + seasonal[o.Date.Weekday()])
		sumSq += r * r
	}
	stdErr := math.Sqrt(sumSq / float64(len(history)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.ForecastPoint, 0, len(history)+periods)
	for i, o := range history {
		yhat := slope*x[i] + intercept + seasonal[o.Date.Weekday()]
		margin := bandZ * stdErr
		out = append(out, model.ForecastPoint{Date: o.Date, Predicted: yhat, LowerBound: yhat - margin, UpperBound: yhat + margin})
	}

	last := history[len(history)-1].Date
	lastX := x[len(x)-1]
	for h := 1; h <= periods; h++ {
		d := last.AddDate(0, 0, h)
		xd := lastX + float64(h)
		yhat := slope*xd + intercept + seasonal[d.Weekday()]
		margin := bandZ * stdErr * math.Sqrt(1+float64(h)/float64(len(history)))
		out = append(out, model.ForecastPoint{Date: d, Predicted: yhat, LowerBound: yhat - margin, UpperBound: yhat + margin})
	}
	return out, nil
}

// linearRegression is ordinary least squares of y on x.
func linearRegression(x, y []float64) (slope, intercept float64) {
	n := float64(len(x))
	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var num, den float64
	for i := range x {
		num += (x[i] - meanX) * (y[i] - meanY)
		den += (x[i] - meanX) * (x[i] - meanX)
	}
	if den != 0 {
		slope = num / den
	}
	return slope, meanY - slope*meanX
}

// weekdayEffects is the mean detrended residual per weekday, centred so the
// seven effects sum to zero.
func weekdayEffects(history []Observation, x []float64, slope, intercept float64) [7]float64 {
	var sums [7]float64
	var counts [7]int
	for i, o := range history {
		wd := o.Date.Weekday()
		sums[wd] += o.Value - (slope*x[i] + intercept)
		counts[wd]++
	}

	var effects [7]float64
	var total float64
	var present int
	for d := 0; d < 7; d++ {
		if counts[d] > 0 {
			effects[d] = sums[d] / float64(counts[d])
			total += effects[d]
			present++
		}
	}
	if present == 0 {
		return effects
	}
	centre := total / float64(present)
	for d := 0; d < 7; d++ {
		if counts[d] > 0 {
			effects[d] -= centre
		}
	}
	return effects
}

func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
