package chunker

import (
	"fmt"
	"strings"

	"github.com/bull/docindex/internal/document"
)

// rowBatchSize is how many data rows go into one low-priority batch chunk.
const rowBatchSize = 20

// chunkCSV emits, in order: one high-priority dataset summary, one
// medium-priority chunk per column, low-priority row batches, and one
// medium-priority statistics chunk covering the numeric columns.
func chunkCSV(em *emitter, csv *document.CSVStructure) {
	em.emit(csvSummary(csv), document.TypeCSVSummary, document.PriorityHigh, nil)

	for col, header := range csv.Headers {
		em.emit(columnChunk(csv, col, header), document.TypeCSVColumn, document.PriorityMedium,
			map[string]any{"column": header})
	}

	emitRowBatches(em, csv.Headers, csv.Rows, document.TypeCSVRowBatch, nil)

	if stats := statisticsText("", csv.Headers, csv.ColumnTypes, csv.Rows); stats != "" {
		em.emit(stats, document.TypeCSVStatistics, document.PriorityMedium, nil)
	}
}

func csvSummary(csv *document.CSVStructure) string {
	var b strings.Builder
	b.WriteString("CSV dataset summary\n")
	fmt.Fprintf(&b, "%d columns, %d rows\n\nColumns:\n", len(csv.Headers), csv.RowCount)
	for _, header := range csv.Headers {
		fmt.Fprintf(&b, "- %s (%s)\n", header, csv.ColumnTypes[header])
	}
	if len(csv.SampleRows) > 0 {
		b.WriteString("\nSample rows:\n")
		b.WriteString(strings.Join(csv.Headers, ", "))
		b.WriteString("\n")
		for _, row := range csv.SampleRows {
			b.WriteString(strings.Join(row, ", "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// columnChunk joins every value of a column under its header so a query
// about one field can land on one chunk.
func columnChunk(csv *document.CSVStructure, col int, header string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Column %s (%s) values:\n", header, csv.ColumnTypes[header])
	for _, row := range csv.Rows {
		if col < len(row) {
			b.WriteString(row[col])
			b.WriteString("\n")
		}
	}
	return b.String()
}

// emitRowBatches splits the rows into batches of rowBatchSize. Headers are
// embedded only in the first batch.
func emitRowBatches(em *emitter, headers []string, rows [][]string, chunkType string, extra map[string]any) {
	for start := 0; start < len(rows); start += rowBatchSize {
		end := min(start+rowBatchSize, len(rows))

		var b strings.Builder
		if start == 0 {
			b.WriteString(strings.Join(headers, ", "))
			b.WriteString("\n")
		}
		for _, row := range rows[start:end] {
			b.WriteString(strings.Join(row, ", "))
			b.WriteString("\n")
		}

		fields := map[string]any{"row_start": start, "row_end": end}
		for k, v := range extra {
			fields[k] = v
		}
		em.emit(b.String(), chunkType, document.PriorityLow, fields)
	}
}

// statisticsText renders the numeric-column statistics block, or "" when no
// column is numeric. label prefixes the title for sheet-scoped statistics.
func statisticsText(label string, headers []string, columnTypes map[string]string, rows [][]string) string {
	var b strings.Builder
	for col, header := range headers {
		if !numericColumnTypes[columnTypes[header]] {
			continue
		}
		stats, ok := computeStats(rows, col)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: count=%d, min=%s, max=%s, avg=%s, median=%s, q1=%s, q3=%s, range=%s\n",
			header, stats.Count,
			formatStat(stats.Min), formatStat(stats.Max), formatStat(stats.Mean),
			formatStat(stats.Median), formatStat(stats.Q1), formatStat(stats.Q3),
			formatStat(stats.Range))
	}
	if b.Len() == 0 {
		return ""
	}

	title := "Numeric column statistics"
	if label != "" {
		title = fmt.Sprintf("Numeric column statistics for %s", label)
	}
	return title + "\n" + b.String()
}
