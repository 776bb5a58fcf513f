// internal/ingest/xlsx_test.go
package ingest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXToCSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.xlsx")
	dst := filepath.Join(dir, "sales.csv")

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]interface{}{"product_id", "location_id", "units_sold"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]interface{}{"p1", "l1", 5}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]interface{}{"p2", "l1", 3}))
	require.NoError(t, wb.SaveAs(src))

	rows, err := xlsxToCSV(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"product_id", "location_id", "units_sold"}, records[0])
	assert.Equal(t, []string{"p1", "l1", "5"}, records[1])
}

func TestXLSXToCSVMissingFile(t *testing.T) {
	_, err := xlsxToCSV(filepath.Join(t.TempDir(), "absent.xlsx"), filepath.Join(t.TempDir(), "out.csv"))
	require.Error(t, err)
}
