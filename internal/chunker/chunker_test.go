package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bull/docindex/internal/document"
)

func genericText(paragraphs int) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "Paragraph %d with enough words to carry some weight in the buffer accounting.\n\n", i)
	}
	return b.String()
}

func TestChunk_Generic(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(genericText(40), document.Structure{}, "doc1", "user1", Options{ChunkSize: 300, Overlap: 60})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Type != document.TypeText {
			t.Errorf("Chunk %d type: got %q, want %q", i, ch.Type, document.TypeText)
		}
		if ch.Priority != document.PriorityMedium {
			t.Errorf("Chunk %d priority: got %q", i, ch.Priority)
		}
	}
}

// TestChunk_GenericOverlap checks that each chunk after the first repeats
// the tail of its predecessor.
func TestChunk_GenericOverlap(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(genericText(40), document.Structure{}, "doc1", "user1", Options{ChunkSize: 300, Overlap: 60})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Need at least 2 chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		// Emission trims whitespace, so compare against the trimmed tail.
		prevTail := strings.TrimSpace(tail(chunks[i-1].Text, 60))
		if !strings.HasPrefix(chunks[i].Text, prevTail) {
			t.Errorf("Chunk %d does not start with the tail of chunk %d", i, i-1)
		}
	}
}

// TestChunk_DefaultOverlap pins the zero-options path: Options{} must chunk
// with DefaultOverlap, not with no overlap at all.
func TestChunk_DefaultOverlap(t *testing.T) {
	opts := Options{}.withDefaults()
	if opts.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", opts.ChunkSize, DefaultChunkSize)
	}
	if opts.Overlap != DefaultOverlap {
		t.Errorf("Overlap = %d, want %d", opts.Overlap, DefaultOverlap)
	}

	c := New()
	chunks, err := c.Chunk(genericText(120), document.Structure{}, "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Need at least 2 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevTail := strings.TrimSpace(tail(chunks[i-1].Text, DefaultOverlap))
		if !strings.HasPrefix(chunks[i].Text, prevTail) {
			t.Errorf("Chunk %d does not start with the %d-char tail of chunk %d", i, DefaultOverlap, i-1)
		}
	}
}

// An overlap that cannot fit the chunk size falls back proportionally
// instead of looping the buffer.
func TestOptions_OverlapClamp(t *testing.T) {
	opts := Options{ChunkSize: 100}.withDefaults()
	if opts.Overlap >= opts.ChunkSize {
		t.Fatalf("Overlap %d not clamped below ChunkSize %d", opts.Overlap, opts.ChunkSize)
	}
	if opts.Overlap != 20 {
		t.Errorf("Overlap = %d, want 20", opts.Overlap)
	}
}

func TestChunk_IndexContiguity(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(genericText(40), document.Structure{}, "doc1", "user1", Options{ChunkSize: 300})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("Chunk %d has index %d", i, ch.Index)
		}
		if ch.TotalChunks != len(chunks) {
			t.Errorf("Chunk %d TotalChunks = %d, want %d", i, ch.TotalChunks, len(chunks))
		}
		if ch.DocumentID != "doc1" || ch.OwnerID != "user1" {
			t.Errorf("Chunk %d carries wrong identity: %+v", i, ch)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := New()
	structure := document.Structure{
		Kind: document.KindCSV,
		CSV: &document.CSVStructure{
			Headers:     []string{"name", "score"},
			RowCount:    2,
			ColumnTypes: map[string]string{"name": "string", "score": "integer"},
			SampleRows:  [][]string{{"A", "10"}, {"B", "90"}},
			Rows:        [][]string{{"A", "10"}, {"B", "90"}},
		},
	}

	first, err := c.Chunk("", structure, "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	second, err := c.Chunk("", structure, "doc1", "user1", Options{})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text || first[i].Type != second[i].Type || first[i].Index != second[i].Index {
			t.Errorf("Chunk %d differs between runs", i)
		}
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New()
	if _, err := c.Chunk("   ", document.Structure{}, "doc1", "user1", Options{}); err != ErrNoChunks {
		t.Errorf("Expected ErrNoChunks, got %v", err)
	}
}

func TestRecordID(t *testing.T) {
	if got := document.RecordID("doc1", 4); got != "doc1_chunk_4" {
		t.Errorf("RecordID = %q", got)
	}
}

func TestTail_RuneBoundary(t *testing.T) {
	s := "héllo wörld"
	got := tail(s, 5)
	if !strings.HasSuffix(s, got) {
		t.Errorf("tail is not a suffix: %q", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Errorf("tail split a rune: %q", got)
		}
	}
}
