package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bull/docindex/internal/document"
)

// xlsxInferenceSample is the per-column sample size for worksheet type
// inference. Smaller than CSV's because sheets are read cell-by-cell.
const xlsxInferenceSample = 10

// extractXLSX opens a workbook and derives per-sheet dimensions, headers,
// column types, formula and merge information, plus workbook-level macro and
// chart presence.
func extractXLSX(data []byte) (*Output, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	structure := &document.XLSXStructure{
		HasMacros: zipContains(data, "xl/vbaProject.bin"),
		HasCharts: zipContains(data, "xl/charts/"),
	}

	var text strings.Builder

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", ErrMalformedInput, name, err)
		}
		if len(rows) == 0 {
			continue
		}

		sheet := document.SheetInfo{
			Name:     name,
			RowCount: len(rows),
			Headers:  rows[0],
		}
		for _, row := range rows {
			if len(row) > sheet.ColCount {
				sheet.ColCount = len(row)
			}
		}

		dataRows := rows[1:]
		sheet.Rows = dataRows
		sheet.ColumnTypes = make(map[string]string, len(sheet.Headers))
		for col, header := range sheet.Headers {
			sheet.ColumnTypes[header] = inferColumnTypeSampled(dataRows, col, xlsxInferenceSample)
		}

		sheet.HasFormulas = sheetHasFormulas(f, name, len(rows), sheet.ColCount)

		merges, err := f.GetMergeCells(name)
		if err == nil {
			for _, m := range merges {
				sheet.MergedCells = append(sheet.MergedCells,
					fmt.Sprintf("%s:%s", m.GetStartAxis(), m.GetEndAxis()))
			}
		}

		structure.Sheets = append(structure.Sheets, sheet)

		text.WriteString("Sheet: " + name + "\n")
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}

	extracted := strings.TrimSpace(text.String())
	if extracted == "" {
		return nil, ErrEmptyContent
	}

	return &Output{
		Text:      extracted,
		WordCount: countWords(extracted),
		Structure: document.Structure{Kind: document.KindXLSX, XLSX: structure},
	}, nil
}

// inferColumnTypeSampled is inferColumnType with a custom sample cap.
func inferColumnTypeSampled(rows [][]string, col, sampleSize int) string {
	var sample [][]string
	count := 0
	for _, row := range rows {
		if col < len(row) && strings.TrimSpace(row[col]) != "" {
			count++
		}
		sample = append(sample, row)
		if count >= sampleSize {
			break
		}
	}
	return inferColumnType(sample, col)
}

// sheetHasFormulas probes a bounded window of cells for formulas. Scanning
// every cell of a large sheet is not worth the precision.
func sheetHasFormulas(f *excelize.File, sheet string, rowCount, colCount int) bool {
	maxRows := min(rowCount, 50)
	maxCols := min(colCount, 26)
	for row := 1; row <= maxRows; row++ {
		for col := 1; col <= maxCols; col++ {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				continue
			}
			if formula, err := f.GetCellFormula(sheet, cell); err == nil && formula != "" {
				return true
			}
		}
	}
	return false
}

// zipContains reports whether the OOXML container has an entry with the
// given name or name prefix.
func zipContains(data []byte, prefix string) bool {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, file := range r.File {
		if strings.HasPrefix(file.Name, prefix) {
			return true
		}
	}
	return false
}
