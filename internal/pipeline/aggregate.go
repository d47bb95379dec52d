package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"go-sales-insights/internal/model"
)

// ------------------- Time buckets -------------------

// GroupByDate sums Sales per bucket, ascending, gaps left unfilled.
func GroupByDate(records []model.CanonicalRecord, g model.Granularity) ([]model.TimeSeriesPoint, error) {
	return SeriesByDate(records, g, model.FieldSales)
}

// SeriesByDate sums metric (Sales or Profit) per bucket.
func SeriesByDate(records []model.CanonicalRecord, g model.Granularity, metric model.Field) ([]model.TimeSeriesPoint, error) {
	value, err := metricGetter(metric)
	if err != nil {
		return nil, err
	}
	if _, err := BucketStart(time.Time{}, g); err != nil {
		return nil, err
	}

	sums := make(map[time.Time]decimal.Decimal)
	for _, r := range records {
		key, _ := BucketStart(r.OrderDate, g)
		sums[key] = sums[key].Add(value(r))
	}

	points := make([]model.TimeSeriesPoint, 0, len(sums))
	for d, v := range sums {
		points = append(points, model.TimeSeriesPoint{Date: d, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// BucketStart returns the first day of the bucket containing t.
func BucketStart(t time.Time, g model.Granularity) (time.Time, error) {
	y, m, d := t.Date()
	switch g {
	case model.GranularityDay:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case model.GranularityMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	case model.GranularityQuarter:
		q := (int(m)-1)/3*3 + 1
		return time.Date(y, time.Month(q), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unknown granularity: %q", g)
	}
}

// ------------------- Dimensions -------------------

// GroupByDimension sums sales and profit per distinct value of dim, ordered
// by key. ok is false when no record carries dim, meaning it was never mapped.
func GroupByDimension(records []model.CanonicalRecord, dim model.Field) (groups []model.GroupAggregate, ok bool) {
	if !dim.IsDimension() {
		return nil, false
	}
	byKey := make(map[string]*model.GroupAggregate)
	for _, r := range records {
		key, mapped := r.Dimension(dim)
		if !mapped {
			continue
		}
		ok = true
		g, exists := byKey[key]
		if !exists {
			g = &model.GroupAggregate{GroupKey: key}
			byKey[key] = g
		}
		g.SalesSum = g.SalesSum.Add(r.Sales)
		g.ProfitSum = g.ProfitSum.Add(r.Profit)
		g.RecordCount++
	}

	groups = make([]model.GroupAggregate, 0, len(byKey))
	for _, g := range byKey {
		g.ProfitMarginPct = ProfitMargin(g.ProfitSum, g.SalesSum)
		groups = append(groups, *g)
	}
	SortGroups(groups, "group_key", true)
	return groups, ok
}

// ProfitMargin is profit/sales*100, null when sales is zero.
func ProfitMargin(profit, sales decimal.Decimal) decimal.NullDecimal {
	if sales.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(profit.Div(sales).Mul(decimal.NewFromInt(100)))
}

// SortGroups orders groups by "group_key", "sales_sum", "profit_sum",
// "profit_margin_pct" or "record_count". Ties and null margins fall back to
// key order; null margins sort last either way.
func SortGroups(groups []model.GroupAggregate, sortBy string, ascending bool) []model.GroupAggregate {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		var cmp int
		switch sortBy {
		case "sales_sum":
			cmp = a.SalesSum.Cmp(b.SalesSum)
		case "profit_sum":
			cmp = a.ProfitSum.Cmp(b.ProfitSum)
		case "record_count":
			cmp = a.RecordCount - b.RecordCount
		case "profit_margin_pct":
			switch {
			case !a.ProfitMarginPct.Valid && !b.ProfitMarginPct.Valid:
				cmp = 0
			case !a.ProfitMarginPct.Valid:
				return false
			case !b.ProfitMarginPct.Valid:
				return true
			default:
				cmp = a.ProfitMarginPct.Decimal.Cmp(b.ProfitMarginPct.Decimal)
			}
		}
		if cmp == 0 {
			return a.GroupKey < b.GroupKey
		}
		if ascending {
			return cmp < 0
		}
		return cmp > 0
	})
	return groups
}

// ------------------- Totals -------------------

// Totals computes the headline metrics. An empty input yields zero values,
// never a division by zero.
func Totals(records []model.CanonicalRecord) model.Totals {
	t := model.Totals{Count: len(records)}
	if len(records) == 0 {
		return t
	}

	latest := records[0].OrderDate
	for _, r := range records {
		t.SalesSum = t.SalesSum.Add(r.Sales)
		t.ProfitSum = t.ProfitSum.Add(r.Profit)
		if r.OrderDate.After(latest) {
			latest = r.OrderDate
		}
	}
	t.SalesMean = t.SalesSum.Div(decimal.NewFromInt(int64(len(records))))

	// Last quarter is a fixed three-month lag from the latest month, not a
	// calendar quarter boundary.
	cutoff := time.Date(latest.Year(), latest.Month()-3, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range records {
		if !r.OrderDate.Before(cutoff) {
			t.LastQuarterSales = t.LastQuarterSales.Add(r.Sales)
		}
	}
	return t
}

// ------------------- Helpers -------------------

func metricGetter(metric model.Field) (func(model.CanonicalRecord) decimal.Decimal, error) {
	switch metric {
	case model.FieldSales:
		return func(r model.CanonicalRecord) decimal.Decimal { return r.Sales }, nil
	case model.FieldProfit:
		return func(r model.CanonicalRecord) decimal.Decimal { return r.Profit }, nil
	default:
		return nil, fmt.Errorf("metric must be Sales or Profit, got %q", metric)
	}
}
