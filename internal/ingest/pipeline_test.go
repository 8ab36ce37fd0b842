//go:build integration

package ingest

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docindex/internal/chunker"
	"github.com/bull/docindex/internal/embedding"
	"github.com/bull/docindex/internal/extract"
	"github.com/bull/docindex/internal/retriever"
	"github.com/bull/docindex/internal/vectorstore"
)

func setupPipeline(t *testing.T) (*Pipeline, *vectorstore.Store, *embedding.Embedder) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	store, err := vectorstore.NewStore("localhost", 6334)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedder, err := embedding.NewEmbedder(0)
	require.NoError(t, err)

	pipeline := NewPipeline(extract.New(), chunker.New(), embedder, store, chunker.Options{}, slog.Default())
	return pipeline, store, embedder
}

func TestPipeline_IngestAndRetrieve_Integration(t *testing.T) {
	pipeline, store, embedder := setupPipeline(t)
	ctx := context.Background()

	ownerID := "it_" + uuid.New().String()[:8]
	t.Cleanup(func() { _ = store.DropNamespace(ctx, "user_"+ownerID+"_docs") })

	result, err := pipeline.IngestDocument(ctx, Upload{
		DocumentID: "scores",
		OwnerID:    ownerID,
		Filename:   "scores.csv",
		MIMEType:   "text/csv",
		Data:       []byte("name,score\nA,10\nB,90\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, "user_"+ownerID+"_docs", result.Namespace)
	// Summary, two columns, one row batch, statistics.
	assert.Equal(t, 5, result.ChunkCount)
	assert.Equal(t, "scores", result.Document.ID)
	assert.Equal(t, ownerID, result.Document.OwnerID)
	assert.Equal(t, len("name,score\nA,10\nB,90\n"), result.Document.ByteSize)
	assert.Greater(t, result.Document.WordCount, 0)
	assert.False(t, result.Document.UploadedAt.IsZero())

	count, err := store.Count(ctx, result.Namespace, nil)
	require.NoError(t, err)
	assert.Equal(t, result.ChunkCount, count)

	r := retriever.New(store, embedder, nil, slog.Default())
	results := r.Retrieve(ctx, "score statistics", ownerID, 5, 4000, nil)
	require.NotEmpty(t, results)
	for _, res := range results {
		assert.Equal(t, "scores", res.DocumentID)
		assert.Equal(t, "scores.csv", res.DocumentName)
		assert.NotEmpty(t, res.Text)
	}
}

// TestPipeline_DeleteDocument_Integration checks deletion removes exactly
// the target document's records.
func TestPipeline_DeleteDocument_Integration(t *testing.T) {
	pipeline, store, _ := setupPipeline(t)
	ctx := context.Background()

	ownerID := "it_" + uuid.New().String()[:8]
	namespace := "user_" + ownerID + "_docs"
	t.Cleanup(func() { _ = store.DropNamespace(ctx, namespace) })

	for _, docID := range []string{"keep", "remove"} {
		_, err := pipeline.IngestDocument(ctx, Upload{
			DocumentID: docID,
			OwnerID:    ownerID,
			Filename:   docID + ".txt",
			MIMEType:   "text/plain",
			Data:       []byte("Some plain text content for the " + docID + " document.\n"),
		})
		require.NoError(t, err)
	}

	before, err := store.Count(ctx, namespace, nil)
	require.NoError(t, err)

	deleted, err := pipeline.DeleteDocument(ctx, ownerID, "remove", false)
	require.NoError(t, err)
	assert.Greater(t, deleted, 0)

	after, err := store.Count(ctx, namespace, nil)
	require.NoError(t, err)
	assert.Equal(t, before-deleted, after)

	remaining, err := store.Count(ctx, namespace, &vectorstore.Filter{
		Equals: map[string]string{"document_id": "keep"},
	})
	require.NoError(t, err)
	assert.Greater(t, remaining, 0)
}

// TestPipeline_Reingest_Integration re-uploads a document and checks the
// deterministic record ids keep the chunk count stable.
func TestPipeline_Reingest_Integration(t *testing.T) {
	pipeline, store, _ := setupPipeline(t)
	ctx := context.Background()

	ownerID := "it_" + uuid.New().String()[:8]
	namespace := "user_" + ownerID + "_docs"
	t.Cleanup(func() { _ = store.DropNamespace(ctx, namespace) })

	upload := Upload{
		DocumentID: "stable",
		OwnerID:    ownerID,
		Filename:   "stable.csv",
		MIMEType:   "text/csv",
		Data:       []byte("name,score\nA,10\nB,90\n"),
	}

	first, err := pipeline.IngestDocument(ctx, upload)
	require.NoError(t, err)
	second, err := pipeline.IngestDocument(ctx, upload)
	require.NoError(t, err)
	assert.Equal(t, first.ChunkCount, second.ChunkCount)

	count, err := store.Count(ctx, namespace, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ChunkCount, count, "Re-ingest must overwrite, not duplicate")
}
