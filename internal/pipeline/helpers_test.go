package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"go-sales-insights/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// rec builds a canonical record; dims alternate field, value.
func rec(date, sales, profit string, dims ...string) model.CanonicalRecord {
	r := model.CanonicalRecord{OrderDate: day(date), Sales: dec(sales), Profit: dec(profit)}
	if len(dims) > 0 {
		r.Dimensions = make(map[model.Field]string)
		for i := 0; i+1 < len(dims); i += 2 {
			r.Dimensions[model.Field(dims[i])] = dims[i+1]
		}
	}
	return r
}

func directMap() model.ColumnMap {
	cm := model.NewColumnMap()
	cm.Set(model.FieldOrderDate, "Order Date", model.ProvenanceExact, 1)
	cm.Set(model.FieldSales, "Sales", model.ProvenanceExact, 1)
	cm.Set(model.FieldProfit, "Profit", model.ProvenanceExact, 1)
	return cm
}

func twoRowTable() *model.RawTable {
	return &model.RawTable{
		Source:  "orders.csv",
		Columns: []string{"Order Date", "Sales", "Profit"},
		Rows: []model.GenericRecord{
			{"Order Date": "2023-01-01", "Sales": "100", "Profit": "20"},
			{"Order Date": "2023-02-01", "Sales": "300", "Profit": "30"},
		},
	}
}
