package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go-sales-insights/internal/model"
)

func TestReadTable_CSV(t *testing.T) {
	data := "\ufeff\"Order Date\",Sales,Sales,\n2023-01-01,100,1,x\n,,,\n2023-01-02,\"1,200\",2\n"

	table, err := ReadTable(context.Background(), "orders.CSV", strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "orders.CSV", table.Source)
	assert.Equal(t, []string{"Order Date", "Sales", "Sales.1", "Column 4"}, table.Columns)
	require.Len(t, table.Rows, 2, "blank row skipped")
	assert.Equal(t, "1,200", table.Rows[1]["Sales"])
	_, ok := table.Rows[1]["Column 4"]
	assert.False(t, ok, "short rows miss keys")
}

func TestReadTable_JSON(t *testing.T) {
	data := `[{"Sales": 100, "Order Date": "2023-01-01"}, {"Profit": 5, "Sales": 3}, "ignored"]`

	table, err := ReadTable(context.Background(), "orders.json", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Order Date", "Sales", "Profit"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 100.0, table.Rows[0]["Sales"])

	single, err := ReadTable(context.Background(), "one.json", strings.NewReader(`{"Sales": 1}`))
	require.NoError(t, err)
	assert.Len(t, single.Rows, 1)

	_, err = ReadTable(context.Background(), "bad.json", strings.NewReader(`42`))
	assert.Error(t, err)
}

func TestReadTable_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Order Date", "Sales", "Profit"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"2023-01-01", 100, 20}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	table, err := ReadTable(context.Background(), "orders.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Order Date", "Sales", "Profit"}, table.Columns)
	require.Len(t, table.Rows, 1)

	records, _, err := Normalize(table, directMap())
	require.NoError(t, err)
	assert.True(t, records[0].Sales.Equal(dec("100")))
}

func TestTableFromGrid_GeneratedNamesStayUnique(t *testing.T) {
	for _, tc := range []struct {
		headers []string
		want    []string
	}{
		{[]string{"A", "A", "A.1"}, []string{"A", "A.1", "A.1.1"}},
		{[]string{"A", "A.1", "A"}, []string{"A", "A.1", "A.2"}},
		{[]string{"Column 2", ""}, []string{"Column 2", "Column 2.1"}},
	} {
		table := tableFromGrid(tc.headers, [][]string{{"x", "y", "z"}})
		assert.Equal(t, tc.want, table.Columns, tc.headers)
		require.Len(t, table.Rows, 1)
		assert.Len(t, table.Rows[0], len(tc.headers), "no cell is overwritten")
	}
}

func TestReadTable_Errors(t *testing.T) {
	_, err := ReadTable(context.Background(), "orders.parquet", strings.NewReader(""))
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = ReadTable(context.Background(), "empty.csv", strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadTable(ctx, "orders.csv", strings.NewReader("a,b\n1,2\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("Order Date,Sales,Profit\n2023-01-01,1,1\n"), 0644))

	table, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "orders.csv", table.Source)
	assert.Equal(t, []model.GenericRecord{{"Order Date": "2023-01-01", "Sales": "1", "Profit": "1"}}, table.Rows)

	_, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
