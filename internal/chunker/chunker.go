// Package chunker converts normalized text plus structural metadata into an
// ordered list of chunks. The structure variant selects one of five
// strategies; absence of structure falls back to generic paragraph chunking.
// Chunking is a pure function of its inputs: the same document and metadata
// always produce byte-identical chunks in the same order.
package chunker

import (
	"errors"
	"strings"

	"github.com/bull/docindex/internal/document"
)

// ErrNoChunks means a strategy produced nothing for a document. Callers must
// not index such a document.
var ErrNoChunks = errors.New("no chunks produced")

const (
	// DefaultChunkSize is the target character budget for generic chunks.
	DefaultChunkSize = 1000
	// DefaultOverlap is how many tail characters of an emitted chunk seed
	// the next buffer, so chunk boundaries keep local context.
	DefaultOverlap = 200
)

// Options tunes the generic strategy. Zero values take the defaults.
type Options struct {
	ChunkSize int
	Overlap   int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap <= 0 || o.Overlap >= o.ChunkSize {
		o.Overlap = DefaultOverlap
		if o.Overlap >= o.ChunkSize {
			o.Overlap = o.ChunkSize / 5
		}
	}
	return o
}

// Chunker dispatches chunking strategies. Stateless; safe for concurrent use.
type Chunker struct{}

// New returns a Chunker.
func New() *Chunker {
	return &Chunker{}
}

// Chunk produces the chunk list for a document. Index values are assigned
// densely in emission order and TotalChunks is stamped onto every chunk in
// a final pass.
func (c *Chunker) Chunk(text string, structure document.Structure, documentID, ownerID string, opts Options) ([]document.Chunk, error) {
	opts = opts.withDefaults()
	em := &emitter{documentID: documentID, ownerID: ownerID}

	if structure.Empty() {
		chunkGeneric(em, text, opts)
	} else {
		switch structure.Kind {
		case document.KindCSV:
			chunkCSV(em, structure.CSV)
		case document.KindXLSX:
			chunkXLSX(em, structure.XLSX)
		case document.KindDoc:
			chunkDoc(em, structure.Doc)
		case document.KindPDF:
			chunkPDF(em, structure.PDF)
		default:
			chunkGeneric(em, text, opts)
		}
	}

	if len(em.chunks) == 0 {
		return nil, ErrNoChunks
	}

	document.StampTotals(em.chunks)
	return em.chunks, nil
}

// emitter assigns monotone indexes at emission time.
type emitter struct {
	documentID string
	ownerID    string
	chunks     []document.Chunk
}

func (e *emitter) emit(text, chunkType string, priority document.Priority, fields map[string]any) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	e.chunks = append(e.chunks, document.Chunk{
		DocumentID: e.documentID,
		OwnerID:    e.ownerID,
		Index:      len(e.chunks),
		Text:       text,
		Type:       chunkType,
		Priority:   priority,
		Fields:     fields,
	})
}

// chunkGeneric accumulates blank-line paragraphs into a running buffer and
// emits whenever the next paragraph would push the buffer past the chunk
// size. The next buffer is seeded with the emitted chunk's tail so adjacent
// chunks overlap.
func chunkGeneric(em *emitter, text string, opts Options) {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return
	}

	var buf string
	for _, para := range paragraphs {
		if buf == "" {
			buf = para
			continue
		}
		if len(buf)+len(para)+2 > opts.ChunkSize {
			em.emit(buf, document.TypeText, document.PriorityMedium, nil)
			buf = tail(buf, opts.Overlap) + "\n\n" + para
			continue
		}
		buf += "\n\n" + para
	}
	em.emit(buf, document.TypeText, document.PriorityMedium, nil)
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

// tail returns the last n bytes of s, snapped forward to a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !isRuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
