// Package ingest orchestrates the write path: extract, analyze, chunk,
// embed, upsert. One document in, one batched embedding call and one
// batched upsert out. A document is never partially indexed: any stage
// failure aborts with nothing written.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/docindex/internal/chunker"
	"github.com/bull/docindex/internal/document"
	"github.com/bull/docindex/internal/extract"
	"github.com/bull/docindex/internal/vectorstore"
)

// Store is the vector store surface the pipeline needs.
type Store interface {
	EnsureNamespace(ctx context.Context, namespace string) error
	Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error
	DeleteByFilter(ctx context.Context, namespace string, filter *vectorstore.Filter) (int, error)
}

// Embedder converts texts into vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor turns raw document bytes into text plus structural metadata.
// The default implementation is heuristic; a format-native parser can be
// dropped in without touching the chunking contract.
type Extractor interface {
	Extract(data []byte, mimeType, filename string) (*extract.Output, error)
}

// Chunker splits extracted text into prioritized chunks.
type Chunker interface {
	Chunk(text string, structure document.Structure, documentID, ownerID string, opts chunker.Options) ([]document.Chunk, error)
}

// Upload is the ingestion boundary consumed from the upload layer.
type Upload struct {
	DocumentID string
	OwnerID    string
	Filename   string
	MIMEType   string
	Data       []byte

	// Shared routes the document into the shared catalog namespace
	// instead of the owner's namespace.
	Shared bool
}

// Result reports a successful ingestion.
type Result struct {
	Document   document.Document
	Namespace  string
	ChunkCount int
	Duration   time.Duration
}

// Pipeline wires the ingestion components together.
type Pipeline struct {
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	store     Store
	opts      chunker.Options
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline. A nil logger falls back to
// slog.Default; zero chunker options take the defaults.
func NewPipeline(extractor Extractor, ch Chunker, embedder Embedder, store Store, opts chunker.Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		opts:      opts,
		logger:    logger,
	}
}

// IngestDocument runs the full write path for one upload. Re-uploading a
// document id first requires DeleteDocument; chunk record ids are
// deterministic, so a plain re-ingest overwrites stale chunks only up to
// the new chunk count.
func (p *Pipeline) IngestDocument(ctx context.Context, upload Upload) (*Result, error) {
	start := time.Now()

	output, err := p.extractor.Extract(upload.Data, upload.MIMEType, upload.Filename)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", upload.Filename, err)
	}

	doc := document.Document{
		ID:            upload.DocumentID,
		Filename:      upload.Filename,
		OwnerID:       upload.OwnerID,
		ByteSize:      len(upload.Data),
		DeclaredType:  upload.MIMEType,
		ExtractedText: output.Text,
		WordCount:     output.WordCount,
		Structure:     output.Structure,
		UploadedAt:    start.UTC(),
	}
	p.logger.Debug("extracted document",
		"document", doc.ID,
		"file", doc.Filename,
		"words", doc.WordCount,
		"structure", doc.Structure.Kind.String(),
	)

	chunks, err := p.chunker.Chunk(doc.ExtractedText, doc.Structure, doc.ID, doc.OwnerID, p.opts)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", upload.Filename, err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", upload.Filename, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", upload.Filename, len(vectors), len(chunks))
	}

	namespace := p.namespaceFor(upload)
	if err := p.store.EnsureNamespace(ctx, namespace); err != nil {
		return nil, fmt.Errorf("ensure namespace %s: %w", namespace, err)
	}

	records := make([]vectorstore.Record, len(chunks))
	now := time.Now().UTC().Format(time.RFC3339)
	for i, chunk := range chunks {
		payload := map[string]any{
			"document_id":   chunk.DocumentID,
			"owner_id":      chunk.OwnerID,
			"document_name": doc.Filename,
			"chunk_index":   chunk.Index,
			"total_chunks":  chunk.TotalChunks,
			"type":          chunk.Type,
			"priority":      string(chunk.Priority),
			"text":          chunk.Text,
			"timestamp":     now,
		}
		for key, value := range chunk.Fields {
			payload[key] = value
		}
		records[i] = vectorstore.Record{
			ID:      document.RecordID(chunk.DocumentID, chunk.Index),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := p.store.Upsert(ctx, namespace, records); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", upload.Filename, err)
	}

	result := &Result{
		Document:   doc,
		Namespace:  namespace,
		ChunkCount: len(chunks),
		Duration:   time.Since(start),
	}
	p.logger.Info("indexed document",
		"document", doc.ID,
		"file", doc.Filename,
		"namespace", namespace,
		"chunks", result.ChunkCount,
		"duration", result.Duration,
	)
	return result, nil
}

// DeleteDocument removes every record whose document_id matches, and no
// others, from the document's namespace. Returns how many records went away.
func (p *Pipeline) DeleteDocument(ctx context.Context, ownerID, documentID string, shared bool) (int, error) {
	namespace := document.NamespaceFor(document.NamespaceUserDocs, ownerID)
	if shared {
		namespace = document.NamespaceFor(document.NamespaceSharedCatalog, "")
	}
	deleted, err := p.store.DeleteByFilter(ctx, namespace, &vectorstore.Filter{
		Equals: map[string]string{"document_id": documentID},
	})
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", documentID, err)
	}
	p.logger.Info("deleted document", "document", documentID, "namespace", namespace, "records", deleted)
	return deleted, nil
}

func (p *Pipeline) namespaceFor(upload Upload) string {
	if upload.Shared {
		return document.NamespaceFor(document.NamespaceSharedCatalog, "")
	}
	return document.NamespaceFor(document.NamespaceUserDocs, upload.OwnerID)
}

// FailureReason maps an ingestion error to the user-visible reason string
// reported across the upload boundary.
func FailureReason(err error, filename string) string {
	switch {
	case errors.Is(err, extract.ErrEmptyContent):
		return fmt.Sprintf("%s contains no readable text", filename)
	case errors.Is(err, extract.ErrUnsupportedType):
		return "Unsupported file type"
	case errors.Is(err, extract.ErrMalformedInput):
		return fmt.Sprintf("%s could not be parsed", filename)
	case errors.Is(err, chunker.ErrNoChunks):
		return fmt.Sprintf("%s produced no indexable content", filename)
	default:
		return "Document processing failed"
	}
}
