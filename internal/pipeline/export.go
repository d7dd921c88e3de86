package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"peerdata/internal"
	"peerdata/internal/table"
)

// RecordsToTable renders records under the canonical header, nulls as "".
func RecordsToTable(records []internal.Record) *table.Table {
	t := table.New(internal.ColumnNames()...)
	t.Rows = make([][]string, 0, len(records))
	for i := range records {
		t.Rows = append(t.Rows, records[i].Strings())
	}
	return t
}

// RecordsFromTable reads canonical rows back, e.g. from an earlier consolidated CSV.
// Missing canonical columns stay null; unknown columns are ignored.
func RecordsFromTable(t *table.Table) []internal.Record {
	idx := make([]int, internal.NumColumns)
	for c := internal.Column(0); c < internal.NumColumns; c++ {
		idx[c] = t.Index(c.String())
	}
	out := make([]internal.Record, 0, t.Len())
	for _, row := range t.Rows {
		var rec internal.Record
		for c := internal.Column(0); c < internal.NumColumns; c++ {
			if idx[c] < 0 {
				continue
			}
			rec.Set(c, cellValue(c, row[idx[c]]))
		}
		out = append(out, rec)
	}
	return out
}

func ExportTableToXLSX(t *table.Table, sheetName, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheetName != "" && sheetName != sheet {
		if err := f.SetSheetName(sheet, sheetName); err != nil {
			return err
		}
		sheet = sheetName
	}

	for i, h := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// ReadXLSXTable loads the first non-empty sheet; its first non-empty row is the header.
func ReadXLSXTable(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		start := -1
		for i, row := range rows {
			if !blankRow(row) {
				start = i
				break
			}
		}
		if start < 0 {
			continue
		}
		header := make([]string, len(rows[start]))
		for i, h := range rows[start] {
			header[i] = strings.TrimSpace(h)
		}
		t := table.New(header...)
		for _, row := range rows[start+1:] {
			if blankRow(row) {
				continue
			}
			t.Append(row...)
		}
		return t, nil
	}
	return table.New(), nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
