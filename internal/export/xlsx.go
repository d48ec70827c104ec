package export

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"catalogrecon/internal/sqlgen"
)

const sheetName = "Products"

// WriteXLSX writes rows to a single sheet with a styled, frozen header row.
// Price columns are stored as numbers so spreadsheets can sort and sum them.
func WriteXLSX(path string, cols []string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return errors.Wrap(err, "header style")
	}

	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := 18.0
		switch c {
		case "name", "description", "specifications", "details":
			width = 40
		}
		if err := f.SetColWidth(sheetName, colName, colName, width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, r := range rows {
		vals := make([]interface{}, len(cols))
		for j, c := range cols {
			vals[j] = xlsxValue(c, r[c])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
			return errors.Wrapf(err, "row %d", i+1)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if len(rows) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(cols), len(rows)+1)
		if err := f.AutoFilter(sheetName, "A1:"+end, nil); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func xlsxValue(col, v string) interface{} {
	switch sqliteTypes[col] {
	case "REAL":
		if d, ok := sqlgen.NormalizeDecimal(v); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	case "INTEGER":
		return sqliteValue(col, v)
	}
	return v
}
