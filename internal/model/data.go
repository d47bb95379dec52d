package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the time bucket used for aggregation
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
)

// TimeSeriesPoint is a summed value for one bucket start date
type TimeSeriesPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// GroupAggregate holds sums for one dimension value. ProfitMarginPct is
// null when SalesSum is zero.
type GroupAggregate struct {
	GroupKey        string              `json:"group_key"`
	SalesSum        decimal.Decimal     `json:"sales_sum"`
	ProfitSum       decimal.Decimal     `json:"profit_sum"`
	ProfitMarginPct decimal.NullDecimal `json:"profit_margin_pct"`
	RecordCount     int                 `json:"record_count"`
}

// Totals are the headline metrics of a record set
type Totals struct {
	Count            int             `json:"count"`
	SalesSum         decimal.Decimal `json:"sales_sum"`
	SalesMean        decimal.Decimal `json:"sales_mean"`
	ProfitSum        decimal.Decimal `json:"profit_sum"`
	LastQuarterSales decimal.Decimal `json:"last_quarter_sales"`
}

// ForecastPoint is one day of model output
type ForecastPoint struct {
	Date       time.Time `json:"date"`
	Predicted  float64   `json:"predicted"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// MonthlyForecast sums predicted values of one calendar month
type MonthlyForecast struct {
	Month     time.Time `json:"month"`
	Predicted float64   `json:"predicted"`
}

// AnomalyLabel classifies a monthly point
type AnomalyLabel string

const (
	AnomalySpike  AnomalyLabel = "Spike"
	AnomalyDrop   AnomalyLabel = "Drop"
	AnomalyNormal AnomalyLabel = "Normal"
)

// AnomalyPoint is a monthly value with its label
type AnomalyPoint struct {
	Month time.Time       `json:"month"`
	Value decimal.Decimal `json:"value"`
	Label AnomalyLabel    `json:"label"`
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json", "xlsx", "database"
	Table       string    `json:"table"`
	Path        string    `json:"path"` // file path or table name
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
