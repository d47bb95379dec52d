package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/store"
)

func sampleAnalysis(t *testing.T) *Analysis {
	t.Helper()
	table := &model.RawTable{
		Source:  "orders.csv",
		Columns: []string{"Order Date", "Sales", "Profit", "Category"},
		Rows: []model.GenericRecord{
			{"Order Date": "2023-01-01", "Sales": "100", "Profit": "20", "Category": "Tech"},
			{"Order Date": "2023-01-20", "Sales": "50", "Profit": "5", "Category": "Office"},
			{"Order Date": "2023-02-01", "Sales": "300", "Profit": "30", "Category": "Tech"},
		},
	}
	cm := directMap()
	cm.Set(model.FieldCategory, "Category", model.ProvenanceExact, 1)

	a, _, _, err := NewRunner(nil, 0).Run(context.Background(), "s1", table, cm, model.DefaultAnalysisParams())
	require.NoError(t, err)
	return a
}

func TestBuildTable(t *testing.T) {
	a := sampleAnalysis(t)

	records, err := BuildTable(a, TableRecords)
	require.NoError(t, err)
	assert.Equal(t, []string{"OrderDate", "Sales", "Profit", "Category"}, records.Columns)
	assert.Len(t, records.Rows, 3)
	assert.Equal(t, "Tech", records.Rows[0]["Category"])

	monthly, err := BuildTable(a, TableMonthly)
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"date": "2023-01-01", "sales": "150"},
		{"date": "2023-02-01", "sales": "300"},
	}, monthly.Rows)

	profit, err := BuildTable(a, TableProfitability)
	require.NoError(t, err)
	assert.Len(t, profit.Rows, 4, "two groups in both lists")

	anomalies, err := BuildTable(a, TableAnomalies)
	require.NoError(t, err)
	assert.Len(t, anomalies.Rows, 2)

	fc, err := BuildTable(a, TableForecast)
	require.NoError(t, err)
	assert.NotEmpty(t, fc.Rows)

	_, err = BuildTable(a, "nope")
	assert.Error(t, err)
}

func TestWriteTable_Formats(t *testing.T) {
	tbl := &Table{
		Name:    "monthly",
		Columns: []string{"date", "sales"},
		Rows: []map[string]interface{}{
			{"date": "2023-01-01", "sales": "150"},
			{"date": "2023-02-01", "sales": "300"},
		},
	}

	var csvBuf bytes.Buffer
	require.NoError(t, WriteTable(&csvBuf, tbl, FormatCSV))
	lines, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"date", "sales"}, {"2023-01-01", "150"}, {"2023-02-01", "300"}}, lines)

	var jsonBuf bytes.Buffer
	require.NoError(t, WriteTable(&jsonBuf, tbl, FormatJSON))
	var doc struct {
		Info struct {
			Table       string `json:"table"`
			RecordCount int    `json:"record_count"`
		} `json:"export_info"`
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &doc))
	assert.Equal(t, "monthly", doc.Info.Table)
	assert.Equal(t, 2, doc.Info.RecordCount)
	assert.Equal(t, "300", doc.Data[1]["sales"])

	var xlsxBuf bytes.Buffer
	require.NoError(t, WriteTable(&xlsxBuf, tbl, FormatXLSX))
	f, err := excelize.OpenReader(&xlsxBuf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("monthly")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"date", "sales"}, {"2023-01-01", "150"}, {"2023-02-01", "300"}}, rows)

	assert.Error(t, WriteTable(&bytes.Buffer{}, tbl, "parquet"))
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	tbl := &Table{Name: "daily", Columns: []string{"date"}, Rows: []map[string]interface{}{{"date": "2023-01-01"}}}

	res := ExportToFile(context.Background(), tbl, FormatCSV, dir)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.RecordCount)
	data, err := os.ReadFile(filepath.Join(dir, "daily.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date\n2023-01-01\n", string(data))

	res = ExportToFile(context.Background(), tbl, "parquet", dir)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestExportToDatabase(t *testing.T) {
	tbl := &Table{Name: "daily", Columns: []string{"date"}, Rows: []map[string]interface{}{{"date": "2023-01-01"}, {"date": "2023-01-02"}}}

	results := ExportToDatabase(context.Background(), "s1", []*Table{tbl})
	require.Len(t, results, 1)
	assert.False(t, results[0].Success, "store not configured")

	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "export.db")))
	t.Cleanup(func() { store.Close() })

	results = ExportToDatabase(context.Background(), "s1", []*Table{tbl})
	require.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, 2, results[0].RecordCount)

	// A second export replaces the first.
	results = ExportToDatabase(context.Background(), "s1", []*Table{tbl})
	require.True(t, results[0].Success)
	rows, err := store.GetExportRows("s1", "daily")
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{"date": "2023-01-01"}, {"date": "2023-01-02"}}, rows)
}
