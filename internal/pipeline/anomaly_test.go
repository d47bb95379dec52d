package pipeline

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sales-insights/internal/model"
)

func TestClassifyAnomalies_SpikeAndDrop(t *testing.T) {
	records, _, err := Normalize(twoRowTable(), directMap())
	require.NoError(t, err)

	monthly, err := GroupByDate(records, model.GranularityMonth)
	require.NoError(t, err)
	points, err := ClassifyAnomalies(monthly, 30)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, day("2023-01-01"), points[0].Month)
	assert.Equal(t, model.AnomalyDrop, points[0].Label)
	assert.Equal(t, day("2023-02-01"), points[1].Month)
	assert.Equal(t, model.AnomalySpike, points[1].Label)
}

func TestClassifyAnomalies_ThresholdIsStrict(t *testing.T) {
	// mean 200, threshold 60 at 30%: 140 and 260 sit exactly on the bounds.
	series := []model.TimeSeriesPoint{
		{Date: day("2023-01-01"), Value: dec("140")},
		{Date: day("2023-02-01"), Value: dec("260")},
		{Date: day("2023-03-01"), Value: dec("200")},
	}
	points, err := ClassifyAnomalies(series, 30)
	require.NoError(t, err)
	for _, p := range points {
		assert.Equal(t, model.AnomalyNormal, p.Label, p.Month)
	}
}

func TestClassifyAnomalies_EdgeCases(t *testing.T) {
	points, err := ClassifyAnomalies(nil, 30)
	require.NoError(t, err)
	assert.Empty(t, points)

	points, err = ClassifyAnomalies([]model.TimeSeriesPoint{{Date: day("2023-01-01"), Value: dec("100")}}, 30)
	require.NoError(t, err)
	assert.Equal(t, []model.AnomalyPoint{{Month: day("2023-01-01"), Value: dec("100"), Label: model.AnomalyNormal}}, points)

	for _, s := range []int{0, 9, 101} {
		_, err := ClassifyAnomalies(nil, s)
		var invalid *model.InvalidParamError
		assert.ErrorAs(t, err, &invalid, s)
	}
}

func TestClassifyAnomalies_NegativeMeanKeepsSign(t *testing.T) {
	// mean -200, threshold -60: upper -260, lower -140.
	series := []model.TimeSeriesPoint{
		{Date: day("2023-01-01"), Value: dec("-100")},
		{Date: day("2023-02-01"), Value: dec("-200")},
		{Date: day("2023-03-01"), Value: dec("-300")},
	}
	points, err := ClassifyAnomalies(series, 30)
	require.NoError(t, err)

	labels := make([]model.AnomalyLabel, len(points))
	for i, p := range points {
		labels[i] = p.Label
	}
	assert.Equal(t, []model.AnomalyLabel{model.AnomalySpike, model.AnomalySpike, model.AnomalyDrop}, labels)
}

func TestClassifyAnomalies_ConstantSeriesProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a constant non-negative series is all Normal", prop.ForAll(
		func(n int, cents int64, sensitivity int) bool {
			series := make([]model.TimeSeriesPoint, n)
			for i := range series {
				series[i] = model.TimeSeriesPoint{Date: day("2020-01-01").AddDate(0, i, 0), Value: decimal.New(cents, -2)}
			}
			points, err := ClassifyAnomalies(series, sensitivity)
			if err != nil || len(points) != n {
				return false
			}
			for _, p := range points {
				if p.Label != model.AnomalyNormal {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 36),
		gen.Int64Range(0, 10_000_000),
		gen.IntRange(MinSensitivity, MaxSensitivity),
	))

	properties.TestingRun(t)
}
