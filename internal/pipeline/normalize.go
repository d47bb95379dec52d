package pipeline

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"go-sales-insights/internal/model"
	"go-sales-insights/pkg/utils"
)

// MaxReportedParseErrors caps how many row errors a report keeps. Counts stay
// exact past the cap.
const MaxReportedParseErrors = 500

// NormalizeReport summarises one normalisation pass
type NormalizeReport struct {
	TotalRows   int                `json:"total_rows"`
	ValidRows   int                `json:"valid_rows"`
	DroppedRows int                `json:"dropped_rows"`
	Errors      []model.ParseError `json:"errors,omitempty"`
}

// Normalize turns raw rows into canonical records using the column map.
// Rows with an unparseable date, sales or profit cell are dropped and
// reported. It fails only when a required field is unmapped or no row
// survives.
func Normalize(table *model.RawTable, cm model.ColumnMap) ([]model.CanonicalRecord, NormalizeReport, error) {
	report := NormalizeReport{TotalRows: len(table.Rows)}

	if err := cm.RequireAll(model.RequiredFields); err != nil {
		return nil, report, err
	}
	dateCol, _ := cm.Column(model.FieldOrderDate)
	salesCol, _ := cm.Column(model.FieldSales)
	profitCol, _ := cm.Column(model.FieldProfit)

	dims := make(map[model.Field]string)
	for _, f := range model.OptionalFields {
		if col, ok := cm.Lookup(f); ok {
			dims[f] = col
		}
	}

	records := make([]model.CanonicalRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		rec, perr := normalizeRow(row, dateCol, salesCol, profitCol, dims)
		if perr != nil {
			perr.Row = i
			report.DroppedRows++
			if len(report.Errors) < MaxReportedParseErrors {
				report.Errors = append(report.Errors, *perr)
			}
			continue
		}
		records = append(records, rec)
	}
	report.ValidRows = len(records)

	log.Info().
		Str("stage", "normalize").
		Int("total_rows", report.TotalRows).
		Int("valid_rows", report.ValidRows).
		Int("dropped_rows", report.DroppedRows).
		Msg("🔍 normalization summary")

	if len(records) == 0 {
		return nil, report, &model.InsufficientDataError{Operation: "normalize", Need: 1, Got: 0}
	}
	return records, report, nil
}

func normalizeRow(row model.GenericRecord, dateCol, salesCol, profitCol string, dims map[model.Field]string) (model.CanonicalRecord, *model.ParseError) {
	date, reason := ParseDate(row[dateCol])
	if reason != "" {
		return model.CanonicalRecord{}, &model.ParseError{Field: model.FieldOrderDate, Value: utils.CellString(row[dateCol]), Reason: reason}
	}
	sales, reason := ParseAmount(row[salesCol])
	if reason != "" {
		return model.CanonicalRecord{}, &model.ParseError{Field: model.FieldSales, Value: utils.CellString(row[salesCol]), Reason: reason}
	}
	profit, reason := ParseAmount(row[profitCol])
	if reason != "" {
		return model.CanonicalRecord{}, &model.ParseError{Field: model.FieldProfit, Value: utils.CellString(row[profitCol]), Reason: reason}
	}

	rec := model.CanonicalRecord{OrderDate: date, Sales: sales, Profit: profit}
	if len(dims) > 0 {
		rec.Dimensions = make(map[model.Field]string, len(dims))
		for f, col := range dims {
			v := utils.CellString(row[col])
			if v == "" {
				v = model.UnknownDimension
			}
			rec.Dimensions[f] = v
		}
	}
	return rec, nil
}

// ------------------- Dates -------------------

// dateLayouts are tried in order. Month-first layouts precede day-first
// ones, so "03/04/2023" reads as March 4th.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01-02-2006",
	"1/2/06",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2.1.2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
}

// Excel serial day numbers are counted from 1899-12-30 (the 1900 leap-year
// bug is already folded into that epoch).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const maxExcelSerial = 2958465 // 9999-12-31

// ParseDate reads a date-like cell and truncates it to a UTC calendar date.
// It returns a non-empty reason on failure.
func ParseDate(v interface{}) (time.Time, string) {
	if t, ok := v.(time.Time); ok {
		return truncateDay(t), ""
	}
	if f, ok := utils.Numeric(v); ok {
		return fromExcelSerial(f)
	}

	s := utils.CellString(v)
	if s == "" {
		return time.Time{}, "empty date"
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), ""
		}
	}
	if f, err := decimal.NewFromString(s); err == nil && len(s) != 8 {
		return fromExcelSerial(f.InexactFloat64())
	}
	return time.Time{}, "unrecognised date"
}

func fromExcelSerial(f float64) (time.Time, string) {
	if math.IsNaN(f) || f < 1 || f > maxExcelSerial {
		return time.Time{}, "number out of range for a date"
	}
	days := int(math.Floor(f))
	return excelEpoch.AddDate(0, 0, days), ""
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ------------------- Amounts -------------------

// amountReplacer strips currency symbols, codes and grouping characters.
var amountReplacer = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "", "₹", "", "₩", "", "₽", "", "₺", "",
	",", "", " ", "", "\u00a0", "", "'", "", "_", "",
)

// ParseAmount coerces a numeric or currency-formatted cell to a decimal.
// Accounting parentheses and trailing minus signs mark negatives. Amounts
// follow the US convention like dates: "," groups thousands and "." is the
// decimal point, so "1.234,56" is rejected. It returns a non-empty reason on
// failure.
func ParseAmount(v interface{}) (decimal.Decimal, string) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, ""
	case int:
		return decimal.NewFromInt(int64(val)), ""
	case int64:
		return decimal.NewFromInt(val), ""
	}
	if f, ok := utils.Numeric(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, "not a finite number"
		}
		return decimal.NewFromFloat(f), ""
	}

	s := utils.CellString(v)
	if s == "" {
		return decimal.Zero, "empty amount"
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	if comma := strings.LastIndex(s, ","); comma >= 0 && strings.Contains(s[:comma], ".") {
		return decimal.Zero, "decimal comma is not supported"
	}
	s = stripCurrencyCode(amountReplacer.Replace(s))

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, "not a number"
	}
	if negative {
		d = d.Neg()
	}
	return d, ""
}

// stripCurrencyCode drops a leading or trailing three-letter code such as
// "USD" or "EUR".
func stripCurrencyCode(s string) string {
	isCode := func(c string) bool {
		if len(c) != 3 {
			return false
		}
		for _, r := range c {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		return true
	}
	upper := strings.ToUpper(s)
	if len(s) > 3 && isCode(upper[:3]) {
		return s[3:]
	}
	if len(s) > 3 && isCode(upper[len(upper)-3:]) {
		return s[:len(s)-3]
	}
	return s
}
