package chunker

import (
	"fmt"
	"strings"

	"github.com/bull/docindex/internal/document"
)

// pdfPageWordThreshold is the minimum word count for a page to earn its own
// low-priority fallback chunk.
const pdfPageWordThreshold = 50

// tableContextPages is how many pages around a table contribute surrounding
// paragraph context to its chunk.
const tableContextPages = 1

// chunkPDF mirrors the document strategy with page awareness: sections bind
// paragraphs to the latest heading at or before their page, table chunks
// carry up to two pages of surrounding paragraph context, and long pages get
// low-priority fallback chunks.
func chunkPDF(em *emitter, pdf *document.PDFStructure) {
	em.emit(pdfSummary(pdf), document.TypePDFSummary, document.PriorityHigh, nil)

	if len(pdf.Headings) > 0 {
		em.emit(outlineText(pdf.Headings, true), document.TypePDFOutline, document.PriorityHigh, nil)
	}

	emitSections(em, pdf.Headings, pdf.Paragraphs, document.TypePDFSection, assignByPage)

	for i, table := range pdf.Tables {
		var b strings.Builder
		fmt.Fprintf(&b, "Table on page %d (%d rows x %d columns):\n%s\n",
			table.Page, table.RowCount, table.ColCount, table.Text)
		if context := surroundingParagraphs(pdf.Paragraphs, table.Page); context != "" {
			b.WriteString("\nSurrounding context:\n")
			b.WriteString(context)
		}
		em.emit(b.String(), document.TypePDFTable, document.PriorityMedium,
			map[string]any{"page": table.Page, "table": i + 1})
	}

	em.emit(contentAnalysisText(pdf.Profile, nil), document.TypeContentAnalysis, document.PriorityMedium, nil)

	for _, page := range pdf.Pages {
		if page.WordCount > pdfPageWordThreshold {
			em.emit(fmt.Sprintf("Page %d:\n%s", page.Number, page.Text),
				document.TypePDFPage, document.PriorityLow, map[string]any{"page": page.Number})
		}
	}
}

func pdfSummary(pdf *document.PDFStructure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PDF summary: %d pages\n", len(pdf.Pages))
	fmt.Fprintf(&b, "Type: %s\n", pdf.Profile.DocType)
	fmt.Fprintf(&b, "%d headings, %d paragraphs, %d tables\n",
		len(pdf.Headings), len(pdf.Paragraphs), len(pdf.Tables))

	var withImages, withTables, withForms int
	for _, page := range pdf.Pages {
		if page.HasImages {
			withImages++
		}
		if page.HasTables {
			withTables++
		}
		if page.HasFormFields {
			withForms++
		}
	}
	if withImages > 0 {
		fmt.Fprintf(&b, "%d pages with images\n", withImages)
	}
	if withTables > 0 {
		fmt.Fprintf(&b, "%d pages with tables\n", withTables)
	}
	if withForms > 0 {
		fmt.Fprintf(&b, "%d pages with form fields\n", withForms)
	}
	if len(pdf.FormFields) > 0 {
		fmt.Fprintf(&b, "Form fields: %s\n", strings.Join(pdf.FormFields, ", "))
	}
	if len(pdf.Profile.Keywords) > 0 {
		fmt.Fprintf(&b, "Key topics: %s\n", strings.Join(pdf.Profile.Keywords, ", "))
	}
	return b.String()
}

// surroundingParagraphs joins paragraph text from the pages adjacent to the
// given page, bounded to keep table chunks from swallowing the document.
func surroundingParagraphs(paragraphs []document.Paragraph, page int) string {
	var parts []string
	for _, p := range paragraphs {
		if p.Page >= page-tableContextPages && p.Page <= page+tableContextPages {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
