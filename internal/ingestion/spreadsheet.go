package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/wikiai/backend/pkg/logger"
)

// extractSpreadsheet tries the OOXML reader first and falls back to the legacy BIFF reader.
func extractSpreadsheet(path string) (string, error) {
	text, err := readWorkbook(path)
	if err == nil {
		return text, nil
	}

	logger.Debug("Workbook reader failed, trying legacy reader", zap.Error(err))
	legacy, legacyErr := readLegacyWorkbook(path)
	if legacyErr != nil {
		return "", errors.Join(err, legacyErr)
	}
	return legacy, nil
}

func readWorkbook(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var blocks []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if block := sheetBlock(sheet, rows); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

func readLegacyWorkbook(path string) (text string, err error) {
	defer recoverInto(&err)

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return "", fmt.Errorf("failed to open legacy workbook: %w", err)
	}

	var blocks []string
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var lines [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			var cells []string
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			lines = append(lines, cells)
		}
		if block := sheetBlock(sheet.Name, lines); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// sheetBlock renders one sheet, or "" when it holds no values.
func sheetBlock(name string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Sheet: %s ===", name)
	empty := true
	for _, row := range rows {
		for len(row) > 0 && strings.TrimSpace(row[len(row)-1]) == "" {
			row = row[:len(row)-1]
		}
		if len(row) == 0 {
			continue
		}
		line := strings.Join(row, " | ")
		b.WriteString("\n")
		b.WriteString(line)
		empty = false
	}
	if empty {
		return ""
	}
	return b.String()
}
