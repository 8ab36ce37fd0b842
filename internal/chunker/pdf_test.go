package chunker

import (
	"strings"
	"testing"

	"github.com/bull/docindex/internal/document"
)

func pdfFixture() document.Structure {
	longText := strings.Repeat("word ", 60)
	return document.Structure{
		Kind: document.KindPDF,
		PDF: &document.PDFStructure{
			Pages: []document.PageInfo{
				{Number: 1, Text: "Short cover page.", WordCount: 3},
				{Number: 2, Text: longText, WordCount: 60, HasTables: true},
			},
			Headings: []document.Heading{
				{Text: "FINDINGS", Level: 1, Page: 2},
			},
			Paragraphs: []document.Paragraph{
				{Text: "Cover paragraph.", Page: 1},
				{Text: "Findings paragraph near the table.", Page: 2},
			},
			Tables: []document.Table{
				{Text: "a\tb\n1\t2", RowCount: 2, ColCount: 2, Page: 2},
			},
			FormFields: []string{"Signature"},
			Profile:    document.Profile{DocType: "report", Language: "English", Readability: "standard"},
		},
	}
}

func TestChunkPDF(t *testing.T) {
	c := New()
	chunks, err := c.Chunk("", pdfFixture(), "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	summary := findByType(chunks, document.TypePDFSummary)
	if summary == nil || summary.Priority != document.PriorityHigh {
		t.Fatal("Missing high-priority PDF summary")
	}
	if !strings.Contains(summary.Text, "2 pages") {
		t.Errorf("Summary missing page count:\n%s", summary.Text)
	}
	if !strings.Contains(summary.Text, "Signature") {
		t.Errorf("Summary missing form fields:\n%s", summary.Text)
	}

	outline := findByType(chunks, document.TypePDFOutline)
	if outline == nil {
		t.Fatal("Missing outline chunk")
	}
	if !strings.Contains(outline.Text, "page 2") {
		t.Errorf("PDF outline should carry page numbers:\n%s", outline.Text)
	}
}

// TestChunkPDF_TableContext checks that a table chunk carries paragraph
// context from adjacent pages.
func TestChunkPDF_TableContext(t *testing.T) {
	c := New()
	chunks, err := c.Chunk("", pdfFixture(), "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	table := findByType(chunks, document.TypePDFTable)
	if table == nil {
		t.Fatal("Missing table chunk")
	}
	if !strings.Contains(table.Text, "Findings paragraph near the table.") {
		t.Errorf("Table chunk missing same-page context:\n%s", table.Text)
	}
	if !strings.Contains(table.Text, "Cover paragraph.") {
		t.Errorf("Table chunk missing adjacent-page context:\n%s", table.Text)
	}
	if table.Fields["page"] != 2 {
		t.Errorf("Table chunk page field: %+v", table.Fields)
	}
}

// TestChunkPDF_PageFallback checks that only pages above the word threshold
// earn a low-priority page chunk.
func TestChunkPDF_PageFallback(t *testing.T) {
	c := New()
	chunks, err := c.Chunk("", pdfFixture(), "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	var pages []document.Chunk
	for _, ch := range chunks {
		if ch.Type == document.TypePDFPage {
			pages = append(pages, ch)
		}
	}
	if len(pages) != 1 {
		t.Fatalf("Expected 1 page fallback chunk, got %d", len(pages))
	}
	if pages[0].Fields["page"] != 2 || pages[0].Priority != document.PriorityLow {
		t.Errorf("Page fallback chunk: %+v", pages[0])
	}
}
