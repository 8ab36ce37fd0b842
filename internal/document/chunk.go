package document

import "fmt"

// Priority classes drive retrieval-time weighting. Summary and outline
// chunks are high, per-column and section chunks medium, raw row batches and
// page fallbacks low.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Chunk type tags. The tag names the shape of the chunk text so retrieval
// consumers can render it appropriately.
const (
	TypeText            = "text"
	TypeCSVSummary      = "csv_summary"
	TypeCSVColumn       = "csv_column"
	TypeCSVRowBatch     = "csv_row_batch"
	TypeCSVStatistics   = "csv_statistics"
	TypeWorkbookSummary = "xlsx_workbook_summary"
	TypeSheetOverview   = "xlsx_sheet_overview"
	TypeSheetColumn     = "xlsx_sheet_column"
	TypeSheetStatistics = "xlsx_sheet_statistics"
	TypeMergedCells     = "xlsx_merged_cells"
	TypeCrossSheet      = "xlsx_cross_sheet"
	TypeDocSummary      = "doc_summary"
	TypeDocOutline      = "doc_outline"
	TypeDocSection      = "doc_section"
	TypeDocTable        = "doc_table"
	TypeDocList         = "doc_list"
	TypeDocParagraphs   = "doc_paragraphs"
	TypeContentAnalysis = "content_analysis"
	TypePDFSummary      = "pdf_summary"
	TypePDFOutline      = "pdf_outline"
	TypePDFSection      = "pdf_section"
	TypePDFTable        = "pdf_table"
	TypePDFPage         = "pdf_page"
	TypeConversation    = "conversation"
	TypeFilterDecision  = "filter_decision"
)

// Chunk is one retrieval unit produced by a chunking strategy.
// Index is dense and contiguous per document starting at 0; TotalChunks is
// back-filled once the full list is known. Chunks are write-once.
type Chunk struct {
	DocumentID  string
	OwnerID     string
	Index       int
	TotalChunks int
	Text        string
	Type        string
	Priority    Priority

	// Fields carries source-specific detail (sheet name, page number,
	// column name) into the vector record payload.
	Fields map[string]any
}

// RecordID derives the deterministic vector record id for a chunk position.
// Re-ingesting the same document overwrites the same ids, making upsert
// idempotent.
func RecordID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// StampTotals back-fills TotalChunks onto every chunk. Second pass of the
// two-pass chunking contract: produce the list, then stamp the count.
func StampTotals(chunks []Chunk) {
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
}
