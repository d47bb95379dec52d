package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/store"
	"go-sales-insights/pkg/utils"
)

// Export table names
const (
	TableRecords       = "records"
	TableDaily         = "daily"
	TableMonthly       = "monthly"
	TableProfitability = "profitability"
	TableAnomalies     = "anomalies"
	TableForecast      = "forecast"
)

// ExportTables lists every table BuildTable knows.
var ExportTables = []string{TableRecords, TableDaily, TableMonthly, TableProfitability, TableAnomalies, TableForecast}

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Table is a named set of flat rows with a fixed column order
type Table struct {
	Name    string                   `json:"name"`
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// ------------------- Tables -------------------

// BuildTable flattens one part of an Analysis. Tables of a missing feature
// are empty, not errors.
func BuildTable(a *Analysis, name string) (*Table, error) {
	switch name {
	case TableRecords:
		cols := []string{string(model.FieldOrderDate), string(model.FieldSales), string(model.FieldProfit)}
		for _, f := range model.OptionalFields {
			if len(a.Records) > 0 {
				if _, ok := a.Records[0].Dimension(f); ok {
					cols = append(cols, string(f))
				}
			}
		}
		t := &Table{Name: name, Columns: cols}
		for _, r := range a.Records {
			t.Rows = append(t.Rows, r.Flatten())
		}
		return t, nil

	case TableDaily, TableMonthly:
		series := a.Daily
		if name == TableMonthly {
			series = a.Monthly
		}
		t := &Table{Name: name, Columns: []string{"date", "sales"}}
		for _, p := range series {
			t.Rows = append(t.Rows, map[string]interface{}{"date": p.Date.Format("2006-01-02"), "sales": p.Value.String()})
		}
		return t, nil

	case TableProfitability:
		t := &Table{Name: name, Columns: []string{"rank", "list", "group_key", "sales_sum", "profit_sum", "profit_margin_pct"}}
		if a.Profitability == nil {
			return t, nil
		}
		add := func(list string, groups []model.GroupAggregate) {
			for i, g := range groups {
				t.Rows = append(t.Rows, map[string]interface{}{
					"rank":              i + 1,
					"list":              list,
					"group_key":         g.GroupKey,
					"sales_sum":         g.SalesSum.String(),
					"profit_sum":        g.ProfitSum.String(),
					"profit_margin_pct": g.ProfitMarginPct.Decimal.StringFixed(2),
				})
			}
		}
		add("top", a.Profitability.Top)
		add("bottom", a.Profitability.Bottom)
		return t, nil

	case TableAnomalies:
		t := &Table{Name: name, Columns: []string{"month", "sales", "label"}}
		for _, p := range a.Anomalies {
			t.Rows = append(t.Rows, map[string]interface{}{"month": p.Month.Format("2006-01"), "sales": p.Value.String(), "label": string(p.Label)})
		}
		return t, nil

	case TableForecast:
		t := &Table{Name: name, Columns: []string{"date", "predicted", "lower_bound", "upper_bound"}}
		if a.Forecast == nil {
			return t, nil
		}
		for _, p := range a.Forecast.Points {
			t.Rows = append(t.Rows, map[string]interface{}{
				"date":        p.Date.Format("2006-01-02"),
				"predicted":   p.Predicted,
				"lower_bound": p.LowerBound,
				"upper_bound": p.UpperBound,
			})
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown export table: %q", name)
}

// ------------------- Writers -------------------

// WriteTable serialises t as csv, json or xlsx.
func WriteTable(w io.Writer, t *Table, format string) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, t)
	case FormatJSON:
		return writeJSON(w, t)
	case FormatXLSX:
		return writeXLSX(w, t)
	}
	return fmt.Errorf("unsupported export format: %q", format)
}

func writeCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return eris.Wrap(err, "failed to write header")
	}
	for i, row := range t.Rows {
		line := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			line[j] = utils.CellString(row[c])
		}
		if err := writer.Write(line); err != nil {
			return eris.Wrapf(err, "failed to write row %d", i)
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "failed to flush CSV")
}

func writeJSON(w io.Writer, t *Table) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	rows := t.Rows
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"table":        t.Name,
			"exported_at":  time.Now().UTC(),
			"record_count": len(rows),
			"columns":      t.Columns,
		},
		"data": rows,
	}
	return eris.Wrap(encoder.Encode(exportData), "failed to encode JSON")
}

func writeXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Name
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return eris.Wrap(err, "failed to name sheet")
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return eris.Wrap(err, "failed to write header")
	}
	for i, row := range t.Rows {
		values := make([]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			values[j] = row[c]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return eris.Wrap(err, "invalid cell")
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return eris.Wrapf(err, "failed to write row %d", i)
		}
	}
	_, err := f.WriteTo(w)
	return eris.Wrap(err, "failed to write workbook")
}

// ------------------- Destinations -------------------

// ExportToFile writes t into dir as <table>.<format>, retrying transient
// file-system failures.
func ExportToFile(ctx context.Context, t *Table, format, dir string) model.ExportResult {
	path := filepath.Join(dir, t.Name+"."+format)
	result := model.ExportResult{Type: format, Table: t.Name, Path: path, Timestamp: time.Now()}

	err := withRetry(ctx, model.DefaultExportRetry, "export "+t.Name, func() error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrap(err, "failed to create directory")
		}
		file, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "failed to create file")
		}
		if err := WriteTable(file, t, format); err != nil {
			file.Close()
			return err
		}
		return eris.Wrap(file.Close(), "failed to close file")
	})

	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
		log.Error().Err(err).Str("path", path).Msg("❌ export to file failed")
	} else {
		result.RecordCount = len(t.Rows)
		log.Info().Str("path", path).Int("records", result.RecordCount).Msg("✅ export to file successful")
	}
	return result
}

// ExportToDatabase stores each table in the SQLite export table, replacing
// the previous copy for the session.
func ExportToDatabase(ctx context.Context, sessionID string, tables []*Table) []model.ExportResult {
	results := make([]model.ExportResult, 0, len(tables))
	for _, t := range tables {
		result := model.ExportResult{Type: "database", Table: t.Name, Path: "exported_rows", Timestamp: time.Now()}

		var n int
		err := ctx.Err()
		if err == nil && !store.Enabled() {
			err = fmt.Errorf("database is not configured")
		}
		if err == nil {
			err = withRetry(ctx, model.DefaultExportRetry, "export "+t.Name, func() error {
				var e error
				n, e = store.SaveExportRows(sessionID, t.Name, t.Rows)
				return e
			})
		}

		result.RecordCount = n
		result.Success = err == nil
		if err != nil {
			result.Error = err.Error()
			log.Error().Err(err).Str("table", t.Name).Msg("❌ export to database failed")
		} else {
			log.Info().Str("table", t.Name).Int("records", n).Msg("✅ export to database successful")
		}
		results = append(results, result)
	}
	return results
}
