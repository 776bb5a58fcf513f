// internal/ingest/xlsx.go
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// xlsxToCSV flattens the first sheet of an XLSX workbook into a CSV file at
// dst and returns the number of rows written. Other sheets are ignored; sales
// exports put their data on the first sheet.
func xlsxToCSV(src, dst string) (int, error) {
	wb, err := excelize.OpenFile(src)
	if err != nil {
		return 0, fmt.Errorf("open workbook %s: %w", src, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("workbook %s contains no sheets", src)
	}

	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("iterate sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)

	written := 0
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return written, fmt.Errorf("read row %d of %s: %w", written+1, src, err)
		}
		if err := w.Write(cells); err != nil {
			return written, fmt.Errorf("write row %d to %s: %w", written+1, dst, err)
		}
		written++
	}
	if err := rows.Error(); err != nil {
		return written, fmt.Errorf("iterate %s: %w", src, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("flush %s: %w", dst, err)
	}

	return written, nil
}
