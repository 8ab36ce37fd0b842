package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bull/docindex/internal/document"
)

func csvFixture(rows [][]string) document.Structure {
	sample := rows
	if len(sample) > 3 {
		sample = sample[:3]
	}
	return document.Structure{
		Kind: document.KindCSV,
		CSV: &document.CSVStructure{
			Headers:     []string{"name", "score"},
			RowCount:    len(rows),
			ColumnTypes: map[string]string{"name": "string", "score": "integer"},
			SampleRows:  sample,
			Rows:        rows,
		},
	}
}

func countByType(chunks []document.Chunk, chunkType string) int {
	n := 0
	for _, ch := range chunks {
		if ch.Type == chunkType {
			n++
		}
	}
	return n
}

func findByType(chunks []document.Chunk, chunkType string) *document.Chunk {
	for i, ch := range chunks {
		if ch.Type == chunkType {
			return &chunks[i]
		}
	}
	return nil
}

// TestChunkCSV_SmallDataset walks the full strategy over a two-row dataset:
// one summary naming both headers, one chunk per column, a single row batch
// and one statistics chunk for the numeric column.
func TestChunkCSV_SmallDataset(t *testing.T) {
	c := New()
	chunks, err := c.Chunk("", csvFixture([][]string{{"A", "10"}, {"B", "90"}}), "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	summary := findByType(chunks, document.TypeCSVSummary)
	if summary == nil {
		t.Fatal("No summary chunk")
	}
	if summary.Priority != document.PriorityHigh {
		t.Errorf("Summary priority: got %q, want high", summary.Priority)
	}
	if !strings.Contains(summary.Text, "name") || !strings.Contains(summary.Text, "score") {
		t.Errorf("Summary missing header names:\n%s", summary.Text)
	}

	if got := countByType(chunks, document.TypeCSVColumn); got != 2 {
		t.Errorf("Expected exactly 2 column chunks, got %d", got)
	}
	if got := countByType(chunks, document.TypeCSVRowBatch); got != 1 {
		t.Errorf("Expected exactly 1 row batch for 2 rows, got %d", got)
	}

	stats := findByType(chunks, document.TypeCSVStatistics)
	if stats == nil {
		t.Fatal("No statistics chunk")
	}
	for _, want := range []string{"score:", "min=10", "max=90", "avg=50"} {
		if !strings.Contains(stats.Text, want) {
			t.Errorf("Statistics chunk missing %q:\n%s", want, stats.Text)
		}
	}
	if strings.Contains(stats.Text, "name:") {
		t.Errorf("Statistics chunk should skip the string column:\n%s", stats.Text)
	}
}

func TestChunkCSV_ColumnChunkFields(t *testing.T) {
	c := New()
	chunks, err := c.Chunk("", csvFixture([][]string{{"A", "10"}, {"B", "90"}}), "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	for _, ch := range chunks {
		if ch.Type != document.TypeCSVColumn {
			continue
		}
		col, ok := ch.Fields["column"].(string)
		if !ok || col == "" {
			t.Errorf("Column chunk missing column field: %+v", ch.Fields)
		}
		if ch.Priority != document.PriorityMedium {
			t.Errorf("Column chunk priority: got %q", ch.Priority)
		}
	}
}

// TestChunkCSV_RowBatches checks batching of a larger dataset: 45 rows at a
// batch size of 20 give three batches, headers only in the first.
func TestChunkCSV_RowBatches(t *testing.T) {
	var rows [][]string
	for i := 0; i < 45; i++ {
		rows = append(rows, []string{fmt.Sprintf("row%d", i), fmt.Sprintf("%d", i)})
	}

	c := New()
	chunks, err := c.Chunk("", csvFixture(rows), "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	var batches []document.Chunk
	for _, ch := range chunks {
		if ch.Type == document.TypeCSVRowBatch {
			batches = append(batches, ch)
		}
	}
	if len(batches) != 3 {
		t.Fatalf("Expected 3 row batches, got %d", len(batches))
	}

	if !strings.HasPrefix(batches[0].Text, "name, score") {
		t.Errorf("First batch should start with headers:\n%s", batches[0].Text)
	}
	if strings.HasPrefix(batches[1].Text, "name, score") {
		t.Errorf("Later batches should not repeat headers")
	}

	if batches[1].Fields["row_start"] != 20 || batches[1].Fields["row_end"] != 40 {
		t.Errorf("Second batch row range: %+v", batches[1].Fields)
	}
	if batches[2].Fields["row_start"] != 40 || batches[2].Fields["row_end"] != 45 {
		t.Errorf("Third batch row range: %+v", batches[2].Fields)
	}
	for i, batch := range batches {
		if batch.Priority != document.PriorityLow {
			t.Errorf("Batch %d priority: got %q, want low", i, batch.Priority)
		}
	}
}

// TestChunkCSV_Ordering pins the emission order: summary first, then
// columns, row batches, statistics.
func TestChunkCSV_Ordering(t *testing.T) {
	c := New()
	chunks, err := c.Chunk("", csvFixture([][]string{{"A", "10"}, {"B", "90"}}), "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	want := []string{
		document.TypeCSVSummary,
		document.TypeCSVColumn,
		document.TypeCSVColumn,
		document.TypeCSVRowBatch,
		document.TypeCSVStatistics,
	}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, ch := range chunks {
		if ch.Type != want[i] {
			t.Errorf("Chunk %d type: got %q, want %q", i, ch.Type, want[i])
		}
	}
}
