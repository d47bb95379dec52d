package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"go-sales-insights/internal/model"
	"go-sales-insights/pkg/utils"
)

// ------------------- Ingestion -------------------

// ReadFile opens path and ingests it according to its extension.
func ReadFile(ctx context.Context, path string) (*model.RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return ReadTable(ctx, filepath.Base(path), file)
}

// ReadTable ingests an uploaded CSV, JSON or spreadsheet stream. The name is
// only used to pick the format and label the table.
func ReadTable(ctx context.Context, name string, r io.Reader) (*model.RawTable, error) {
	log.Info().Str("source", name).Msg("➡️ starting ingestion")

	var (
		table *model.RawTable
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		table, err = ingestCSV(ctx, r)
	case ".json":
		table, err = ingestJSON(ctx, r)
	case ".xlsx", ".xlsm", ".xltx":
		table, err = ingestXLSX(ctx, r)
	default:
		return nil, fmt.Errorf("unsupported file type: %q", ext)
	}
	if err != nil {
		return nil, err
	}

	table.Source = name
	log.Info().Str("source", name).Int("rows", len(table.Rows)).Int("columns", len(table.Columns)).Msg("✅ finished ingestion")
	return table, nil
}

// ------------------- CSV Ingestion -------------------
func ingestCSV(ctx context.Context, r io.Reader) (*model.RawTable, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to read CSV header")
	}

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "CSV read error after %d rows", len(rows))
		}
		rows = append(rows, record)
	}
	return tableFromGrid(headers, rows), nil
}

// ------------------- JSON Ingestion -------------------

// ingestJSON accepts an array of objects or a single object.
func ingestJSON(ctx context.Context, r io.Reader) (*model.RawTable, error) {
	var raw interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "failed to decode JSON")
	}

	var items []interface{}
	switch data := raw.(type) {
	case []interface{}:
		items = data
	case map[string]interface{}:
		items = []interface{}{data}
	default:
		return nil, fmt.Errorf("unexpected JSON structure: %T", raw)
	}

	table := &model.RawTable{}
	seen := make(map[string]bool)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec := make(model.GenericRecord, len(m))
		// JSON objects are unordered; new keys are appended sorted per row so
		// the column order is stable across runs.
		for _, k := range utils.SortedKeys(m) {
			h := cleanHeader(k)
			rec[h] = m[k]
			if !seen[h] {
				seen[h] = true
				table.Columns = append(table.Columns, h)
			}
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// ------------------- Spreadsheet Ingestion -------------------

// ingestXLSX reads the first sheet. Cells come back as formatted text, which
// the normalizer parses like CSV input.
func ingestXLSX(ctx context.Context, r io.Reader) (*model.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open spreadsheet")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read sheet %q", sheet)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return tableFromGrid(grid[0], grid[1:]), nil
}

// ------------------- Helpers -------------------

// tableFromGrid builds a RawTable from a header row and data rows. Blank
// headers become "Column N", repeated headers get the first unused ".N" suffix, and fully
// blank rows are skipped.
func tableFromGrid(headers []string, rows [][]string) *model.RawTable {
	table := &model.RawTable{Columns: make([]string, len(headers))}
	counts := make(map[string]int)
	for i, h := range headers {
		name := cleanHeader(h)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		base := name
		for counts[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, counts[base])
			counts[base]++
		}
		counts[name] = 1
		table.Columns[i] = name
	}

	for _, row := range rows {
		rec := make(model.GenericRecord, len(table.Columns))
		blank := true
		for i, h := range table.Columns {
			if i >= len(row) {
				break
			}
			if strings.TrimSpace(row[i]) != "" {
				blank = false
			}
			rec[h] = row[i]
		}
		if !blank {
			table.Rows = append(table.Rows, rec)
		}
	}
	return table
}

// cleanHeader trims whitespace, a UTF-8 BOM and all quotes from a header.
func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ReplaceAll(h, `"`, "")
	return strings.TrimSpace(h)
}
