package pipeline

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sales-insights/internal/model"
)

func TestGroupByDate_Granularities(t *testing.T) {
	records := []model.CanonicalRecord{
		rec("2023-01-15", "10", "1"),
		rec("2023-01-15", "5", "1"),
		rec("2023-02-03", "20", "2"),
		rec("2023-04-30", "40", "4"),
	}

	daily, err := GroupByDate(records, model.GranularityDay)
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, day("2023-01-15"), daily[0].Date)
	assert.True(t, daily[0].Value.Equal(dec("15")))

	monthly, err := GroupByDate(records, model.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, monthly, 3, "March is a gap, not a zero")
	assert.Equal(t, day("2023-02-01"), monthly[1].Date)

	quarterly, err := GroupByDate(records, model.GranularityQuarter)
	require.NoError(t, err)
	require.Len(t, quarterly, 2)
	assert.Equal(t, day("2023-01-01"), quarterly[0].Date)
	assert.True(t, quarterly[0].Value.Equal(dec("35")))
	assert.Equal(t, day("2023-04-01"), quarterly[1].Date)

	_, err = GroupByDate(records, "week")
	assert.Error(t, err)
}

func TestSeriesByDate_Profit(t *testing.T) {
	records := []model.CanonicalRecord{rec("2023-01-01", "100", "20"), rec("2023-01-02", "300", "-30")}

	series, err := SeriesByDate(records, model.GranularityMonth, model.FieldProfit)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.True(t, series[0].Value.Equal(dec("-10")))

	_, err = SeriesByDate(records, model.GranularityDay, model.FieldRegion)
	assert.Error(t, err)
}

func TestGroupByDimension(t *testing.T) {
	records := []model.CanonicalRecord{
		rec("2023-01-01", "100", "20", "Category", "Tech"),
		rec("2023-01-02", "50", "-10", "Category", "Office"),
		rec("2023-01-03", "100", "10", "Category", "Tech"),
		rec("2023-01-04", "0", "5", "Category", "Free"),
	}

	groups, ok := GroupByDimension(records, model.FieldCategory)
	require.True(t, ok)
	require.Len(t, groups, 3)

	assert.Equal(t, []string{"Free", "Office", "Tech"}, []string{groups[0].GroupKey, groups[1].GroupKey, groups[2].GroupKey})
	assert.False(t, groups[0].ProfitMarginPct.Valid, "zero sales has no margin")
	assert.True(t, groups[1].ProfitMarginPct.Decimal.Equal(dec("-20")))
	assert.True(t, groups[2].SalesSum.Equal(dec("200")))
	assert.True(t, groups[2].ProfitMarginPct.Decimal.Equal(dec("15")))
	assert.Equal(t, 2, groups[2].RecordCount)

	_, ok = GroupByDimension(records, model.FieldRegion)
	assert.False(t, ok, "unmapped dimension")
	_, ok = GroupByDimension(records, model.FieldSales)
	assert.False(t, ok, "not a dimension")
}

func TestSortGroups(t *testing.T) {
	groups := []model.GroupAggregate{
		{GroupKey: "b", SalesSum: dec("10"), ProfitMarginPct: decimal.NewNullDecimal(dec("5"))},
		{GroupKey: "a", SalesSum: dec("30"), ProfitMarginPct: decimal.NullDecimal{}},
		{GroupKey: "c", SalesSum: dec("10"), ProfitMarginPct: decimal.NewNullDecimal(dec("50"))},
	}

	SortGroups(groups, "sales_sum", false)
	assert.Equal(t, "a", groups[0].GroupKey)
	assert.Equal(t, "b", groups[1].GroupKey, "ties break by key")

	SortGroups(groups, "profit_margin_pct", true)
	assert.Equal(t, []string{"b", "c", "a"}, []string{groups[0].GroupKey, groups[1].GroupKey, groups[2].GroupKey})
	SortGroups(groups, "profit_margin_pct", false)
	assert.Equal(t, []string{"c", "b", "a"}, []string{groups[0].GroupKey, groups[1].GroupKey, groups[2].GroupKey})
}

func TestTotals(t *testing.T) {
	assert.Equal(t, model.Totals{}, Totals(nil))

	records := []model.CanonicalRecord{
		rec("2023-01-31", "100", "10"),
		rec("2023-02-01", "200", "20"),
		rec("2023-04-15", "300", "30"),
		rec("2023-05-20", "400", "40"),
	}
	totals := Totals(records)
	assert.Equal(t, 4, totals.Count)
	assert.True(t, totals.SalesSum.Equal(dec("1000")))
	assert.True(t, totals.SalesMean.Equal(dec("250")))
	assert.True(t, totals.ProfitSum.Equal(dec("100")))
	// Latest month is May, so the window starts on February 1st.
	assert.True(t, totals.LastQuarterSales.Equal(dec("900")), totals.LastQuarterSales.String())
}

func TestTotals_LastQuarterCrossesYear(t *testing.T) {
	records := []model.CanonicalRecord{
		rec("2022-09-30", "1", "0"),
		rec("2022-10-01", "2", "0"),
		rec("2023-01-10", "4", "0"),
	}
	assert.True(t, Totals(records).LastQuarterSales.Equal(dec("6")))
}

func TestGroupByDate_DaySumMatchesTotalProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	entryGen := gopter.CombineGens(gen.IntRange(0, 730), gen.Int64Range(-1_000_000, 1_000_000)).
		Map(func(v []interface{}) model.CanonicalRecord {
			return model.CanonicalRecord{
				OrderDate: start.AddDate(0, 0, v[0].(int)),
				Sales:     decimal.New(v[1].(int64), -2),
			}
		})

	properties.Property("daily sums add up to the sales total", prop.ForAll(
		func(records []model.CanonicalRecord) bool {
			daily, err := GroupByDate(records, model.GranularityDay)
			if err != nil {
				return false
			}
			sum := decimal.Zero
			for _, p := range daily {
				sum = sum.Add(p.Value)
			}
			return sum.Equal(Totals(records).SalesSum)
		},
		gen.SliceOf(entryGen),
	))

	properties.TestingRun(t)
}
