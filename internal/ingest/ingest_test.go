package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/bull/docindex/internal/chunker"
	"github.com/bull/docindex/internal/document"
	"github.com/bull/docindex/internal/extract"
	"github.com/bull/docindex/internal/vectorstore"
)

type fakeExtractor struct {
	output *extract.Output
	err    error
}

func (f *fakeExtractor) Extract(data []byte, mimeType, filename string) (*extract.Output, error) {
	return f.output, f.err
}

type fakeChunker struct {
	chunks []document.Chunk
	err    error
}

func (f *fakeChunker) Chunk(text string, structure document.Structure, documentID, ownerID string, opts chunker.Options) ([]document.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	chunks := make([]document.Chunk, len(f.chunks))
	copy(chunks, f.chunks)
	for i := range chunks {
		chunks[i].DocumentID = documentID
		chunks[i].OwnerID = ownerID
		chunks[i].Index = i
	}
	document.StampTotals(chunks)
	return chunks, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, vectorstore.VectorDimension)
	}
	return vectors, nil
}

type fakeStore struct {
	ensured []string
	upserts map[string][]vectorstore.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{upserts: make(map[string][]vectorstore.Record)}
}

func (f *fakeStore) EnsureNamespace(ctx context.Context, namespace string) error {
	f.ensured = append(f.ensured, namespace)
	return nil
}

func (f *fakeStore) Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error {
	f.upserts[namespace] = append(f.upserts[namespace], records...)
	return nil
}

func (f *fakeStore) DeleteByFilter(ctx context.Context, namespace string, filter *vectorstore.Filter) (int, error) {
	return 0, nil
}

func testUpload() Upload {
	return Upload{
		DocumentID: "notes",
		OwnerID:    "user1",
		Filename:   "notes.txt",
		MIMEType:   "text/plain",
		Data:       []byte("some note text"),
	}
}

func TestIngestDocument_Result(t *testing.T) {
	extractor := &fakeExtractor{output: &extract.Output{Text: "some note text", WordCount: 3}}
	ch := &fakeChunker{chunks: []document.Chunk{
		{Text: "some note", Type: document.TypeText, Priority: document.PriorityMedium},
		{Text: "note text", Type: document.TypeText, Priority: document.PriorityMedium},
	}}
	store := newFakeStore()

	pipeline := NewPipeline(extractor, ch, &fakeEmbedder{}, store, chunker.Options{}, nil)
	upload := testUpload()
	result, err := pipeline.IngestDocument(context.Background(), upload)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	if result.Document.ID != "notes" || result.Document.OwnerID != "user1" {
		t.Errorf("Document identity: %+v", result.Document)
	}
	if result.Document.Filename != "notes.txt" {
		t.Errorf("Document filename: %q", result.Document.Filename)
	}
	if result.Document.ByteSize != len(upload.Data) {
		t.Errorf("Document byte size: got %d, want %d", result.Document.ByteSize, len(upload.Data))
	}
	if result.Document.WordCount != 3 {
		t.Errorf("Document word count: %d", result.Document.WordCount)
	}
	if result.Document.ExtractedText != "some note text" {
		t.Errorf("Document extracted text: %q", result.Document.ExtractedText)
	}
	if result.Document.UploadedAt.IsZero() {
		t.Error("Document upload time not set")
	}
	if result.Namespace != "user_user1_docs" {
		t.Errorf("Namespace: %q", result.Namespace)
	}
	if result.ChunkCount != 2 {
		t.Errorf("ChunkCount: %d", result.ChunkCount)
	}

	records := store.upserts[result.Namespace]
	if len(records) != 2 {
		t.Fatalf("Upserted %d records, want 2", len(records))
	}
	if records[0].ID != "notes_chunk_0" || records[1].ID != "notes_chunk_1" {
		t.Errorf("Record ids: %q, %q", records[0].ID, records[1].ID)
	}
	if records[0].Payload["document_name"] != "notes.txt" {
		t.Errorf("Payload document_name: %v", records[0].Payload["document_name"])
	}
}

func TestIngestDocument_SharedNamespace(t *testing.T) {
	extractor := &fakeExtractor{output: &extract.Output{Text: "catalog entry", WordCount: 2}}
	ch := &fakeChunker{chunks: []document.Chunk{{Text: "catalog entry", Type: document.TypeText, Priority: document.PriorityMedium}}}
	store := newFakeStore()

	pipeline := NewPipeline(extractor, ch, &fakeEmbedder{}, store, chunker.Options{}, nil)
	upload := testUpload()
	upload.Shared = true
	result, err := pipeline.IngestDocument(context.Background(), upload)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}
	if result.Namespace != "shared_catalog_docs" {
		t.Errorf("Namespace: %q", result.Namespace)
	}
}

// A failed stage must leave nothing indexed.
func TestIngestDocument_NoPartialIndexing(t *testing.T) {
	ch := &fakeChunker{chunks: []document.Chunk{{Text: "x", Type: document.TypeText, Priority: document.PriorityMedium}}}

	tests := []struct {
		name      string
		extractor Extractor
		embedder  Embedder
	}{
		{
			name:      "extract failure",
			extractor: &fakeExtractor{err: errors.New("bad bytes")},
			embedder:  &fakeEmbedder{},
		},
		{
			name:      "embed failure",
			extractor: &fakeExtractor{output: &extract.Output{Text: "x", WordCount: 1}},
			embedder:  &fakeEmbedder{err: errors.New("rate limited")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			pipeline := NewPipeline(tt.extractor, ch, tt.embedder, store, chunker.Options{}, nil)
			if _, err := pipeline.IngestDocument(context.Background(), testUpload()); err == nil {
				t.Fatal("Expected an error")
			}
			if len(store.upserts) != 0 {
				t.Errorf("Records written despite failure: %v", store.upserts)
			}
		})
	}
}
