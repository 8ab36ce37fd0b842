package chunker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bull/docindex/internal/document"
)

// chunkXLSX emits one high-priority workbook summary; per sheet, a
// high-priority overview, medium per-column chunks, a medium statistics
// chunk when numeric columns exist and a low merged-cell chunk when merges
// exist; and a medium cross-sheet relationship chunk for multi-sheet books.
func chunkXLSX(em *emitter, wb *document.XLSXStructure) {
	em.emit(workbookSummary(wb), document.TypeWorkbookSummary, document.PriorityHigh, nil)

	for _, sheet := range wb.Sheets {
		fields := map[string]any{"sheet": sheet.Name}

		em.emit(sheetOverview(sheet), document.TypeSheetOverview, document.PriorityHigh, fields)

		for col, header := range sheet.Headers {
			var b strings.Builder
			fmt.Fprintf(&b, "Sheet %s, column %s (%s) values:\n", sheet.Name, header, sheet.ColumnTypes[header])
			for _, row := range sheet.Rows {
				if col < len(row) {
					b.WriteString(row[col])
					b.WriteString("\n")
				}
			}
			em.emit(b.String(), document.TypeSheetColumn, document.PriorityMedium,
				map[string]any{"sheet": sheet.Name, "column": header})
		}

		if stats := statisticsText("sheet "+sheet.Name, sheet.Headers, sheet.ColumnTypes, sheet.Rows); stats != "" {
			em.emit(stats, document.TypeSheetStatistics, document.PriorityMedium, fields)
		}

		if len(sheet.MergedCells) > 0 {
			text := fmt.Sprintf("Merged cell ranges in sheet %s:\n%s",
				sheet.Name, strings.Join(sheet.MergedCells, "\n"))
			em.emit(text, document.TypeMergedCells, document.PriorityLow, fields)
		}
	}

	if len(wb.Sheets) > 1 {
		em.emit(crossSheetChunk(wb), document.TypeCrossSheet, document.PriorityMedium, nil)
	}
}

func workbookSummary(wb *document.XLSXStructure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workbook summary: %d sheets\n", len(wb.Sheets))
	for _, sheet := range wb.Sheets {
		fmt.Fprintf(&b, "- %s: %d rows x %d columns\n", sheet.Name, sheet.RowCount, sheet.ColCount)
	}
	if wb.HasMacros {
		b.WriteString("Workbook contains macros\n")
	}
	if wb.HasCharts {
		b.WriteString("Workbook contains charts\n")
	}
	return b.String()
}

func sheetOverview(sheet document.SheetInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sheet %s: %d rows x %d columns\n\nColumns:\n", sheet.Name, sheet.RowCount, sheet.ColCount)
	for _, header := range sheet.Headers {
		fmt.Fprintf(&b, "- %s (%s)\n", header, sheet.ColumnTypes[header])
	}
	if sheet.HasFormulas {
		b.WriteString("\nSheet contains formulas\n")
	}
	return b.String()
}

// crossSheetChunk reports columns that appear on more than one sheet, the
// cheap signal for workbook-level relationships.
func crossSheetChunk(wb *document.XLSXStructure) string {
	sheetsByHeader := make(map[string][]string)
	for _, sheet := range wb.Sheets {
		for _, header := range sheet.Headers {
			sheetsByHeader[header] = append(sheetsByHeader[header], sheet.Name)
		}
	}

	var shared []string
	for header, sheets := range sheetsByHeader {
		if len(sheets) > 1 {
			shared = append(shared, fmt.Sprintf("- %s appears in: %s", header, strings.Join(sheets, ", ")))
		}
	}
	sort.Strings(shared)

	var b strings.Builder
	fmt.Fprintf(&b, "Cross-sheet relationships across %d sheets\n", len(wb.Sheets))
	if len(shared) == 0 {
		b.WriteString("No shared column names between sheets\n")
	} else {
		b.WriteString("Shared columns:\n")
		b.WriteString(strings.Join(shared, "\n"))
	}
	return b.String()
}
