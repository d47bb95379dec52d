package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-2s", time.Minute))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", CellString(nil))
	assert.Equal(t, "abc", CellString("  abc "))
	assert.Equal(t, "3", CellString(3.0))
	assert.Equal(t, "2.5", CellString(float32(2.5)))
	assert.Equal(t, "42", CellString(42))
	assert.Equal(t, "2023-03-04", CellString(time.Date(2023, 3, 4, 10, 0, 0, 0, time.UTC)))
}

func TestNumeric(t *testing.T) {
	for _, v := range []interface{}{7, int64(7), 7.0, float32(7), int8(7), uint16(7)} {
		f, ok := Numeric(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, 7.0, f)
	}
	for _, v := range []interface{}{nil, "7", true, []int{7}} {
		_, ok := Numeric(v)
		assert.False(t, ok, "%T", v)
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, SortedKeys(map[string]bool{}))
}

func TestOutputManager(t *testing.T) {
	om := NewOutputManager(t.TempDir())

	dir, err := om.SessionDir("abc")
	require.NoError(t, err)
	assert.DirExists(t, dir)

	path := om.FilePath("abc", "../../monthly.csv")
	assert.Equal(t, filepath.Join(dir, "monthly.csv"), path)
	require.NoError(t, os.WriteFile(path, []byte("date,sales\n"), 0644))

	size, err := om.FileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	assert.Equal(t, "/api/v1/sessions/abc/files/monthly.csv", om.DownloadURL("abc", path))
	assert.Equal(t, "text/csv", om.ContentType("monthly.CSV"))
	assert.Equal(t, "application/json", om.ContentType("daily.json"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", om.ContentType("records.xlsx"))
	assert.Equal(t, "application/octet-stream", om.ContentType("notes"))

	require.NoError(t, om.RemoveSession("abc"))
	assert.NoDirExists(t, dir)
}
