package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// GenericRecord is a schema-agnostic map for any uploaded row
type GenericRecord map[string]interface{}

// RawTable is an uploaded dataset before any column has been interpreted.
// Columns keeps the header order; rows may miss keys.
type RawTable struct {
	Source  string          `json:"source"`
	Columns []string        `json:"columns"`
	Rows    []GenericRecord `json:"rows"`
}

// Field is a canonical role that business logic depends on
type Field string

const (
	FieldOrderDate Field = "OrderDate"
	FieldSales     Field = "Sales"
	FieldProfit    Field = "Profit"
	FieldProduct   Field = "Product"
	FieldCategory  Field = "Category"
	FieldRegion    Field = "Region"
	FieldSegment   Field = "Segment"
)

// RequiredFields must be mapped before any record can be produced.
var RequiredFields = []Field{FieldOrderDate, FieldSales, FieldProfit}

// OptionalFields are carried through as text when mapped.
var OptionalFields = []Field{FieldProduct, FieldCategory, FieldRegion, FieldSegment}

// IsDimension reports whether f is one of the optional text dimensions.
func (f Field) IsDimension() bool {
	for _, o := range OptionalFields {
		if o == f {
			return true
		}
	}
	return false
}

// ParseField accepts canonical names case-insensitively, with or without
// spaces or underscores ("order date", "OrderDate", "order_date").
func ParseField(s string) (Field, bool) {
	key := foldName(s)
	for _, f := range append(append([]Field{}, RequiredFields...), OptionalFields...) {
		if key == foldName(string(f)) {
			return f, true
		}
	}
	return "", false
}

func foldName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// UnknownDimension replaces blank dimension cells.
const UnknownDimension = "Unknown"

// CanonicalRecord is one validated sales row.
type CanonicalRecord struct {
	OrderDate  time.Time        `json:"order_date"`
	Sales      decimal.Decimal  `json:"sales"`
	Profit     decimal.Decimal  `json:"profit"`
	Dimensions map[Field]string `json:"dimensions,omitempty"`
}

// Dimension returns the value of an optional field and whether it was mapped.
func (r CanonicalRecord) Dimension(f Field) (string, bool) {
	v, ok := r.Dimensions[f]
	return v, ok
}

// Flatten renders the record as a flat field → value row for export.
func (r CanonicalRecord) Flatten() map[string]interface{} {
	row := map[string]interface{}{
		string(FieldOrderDate): r.OrderDate.Format("2006-01-02"),
		string(FieldSales):     r.Sales.String(),
		string(FieldProfit):    r.Profit.String(),
	}
	for f, v := range r.Dimensions {
		row[string(f)] = v
	}
	return row
}
