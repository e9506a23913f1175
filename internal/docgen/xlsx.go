package docgen

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

func renderXLSX(p page) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create label style: %w", err)
	}
	textStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create text style: %w", err)
	}
	footerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true, Size: 9, Color: "6E6E6E"}})
	if err != nil {
		return nil, fmt.Errorf("failed to create footer style: %w", err)
	}

	// Keep the first failure; excelize calls are independent of each other.
	var buildErr error
	check := func(err error) {
		if buildErr == nil && err != nil {
			buildErr = err
		}
	}

	check(f.SetCellValue(xlsxSheet, "A1", p.Title))
	check(f.MergeCell(xlsxSheet, "A1", "B1"))
	check(f.SetCellStyle(xlsxSheet, "A1", "B1", titleStyle))
	check(f.SetRowHeight(xlsxSheet, 1, 28))
	check(f.SetCellValue(xlsxSheet, "A3", "Key points:"))
	check(f.SetCellStyle(xlsxSheet, "A3", "A3", labelStyle))
	check(f.SetColWidth(xlsxSheet, "A", "A", 5))
	check(f.SetColWidth(xlsxSheet, "B", "B", 80))

	row := 4
	for i, para := range p.Paragraphs {
		textCell := fmt.Sprintf("B%d", row)
		check(f.SetCellValue(xlsxSheet, fmt.Sprintf("A%d", row), i+1))
		check(f.SetCellValue(xlsxSheet, textCell, para))
		check(f.SetCellStyle(xlsxSheet, textCell, textCell, textStyle))
		row++
	}

	footerCell := fmt.Sprintf("A%d", row+1)
	check(f.SetCellValue(xlsxSheet, footerCell, p.Footer))
	check(f.SetCellStyle(xlsxSheet, footerCell, footerCell, footerStyle))

	if buildErr != nil {
		return nil, fmt.Errorf("failed to build xlsx: %w", buildErr)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
