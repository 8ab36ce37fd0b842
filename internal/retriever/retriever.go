// Package retriever executes similarity search and admits results into a
// hard token budget. Greedy knapsack-by-rank: candidates are considered in
// descending similarity order and admission stops at the first candidate
// that would blow the budget, so the returned list is always a rank-order
// prefix of the unconstrained result. Optimality is intentionally
// sacrificed for relevance-order stability.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/docindex/internal/document"
	"github.com/bull/docindex/internal/vectorstore"
)

// overFetchFactor over-requests candidates so enough survive token-budget
// pruning.
const overFetchFactor = 2

// Store is the read surface the retriever needs.
type Store interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error)
}

// Embedder turns a query into a vector.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Result is one admitted chunk, in descending-relevance order.
type Result struct {
	Text         string
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	ChunkType    string
	Priority     string
	Score        float32
}

// Retriever runs the query path.
type Retriever struct {
	store    Store
	embedder Embedder
	counter  TokenCounter
	logger   *slog.Logger
}

// New creates a Retriever. A nil counter uses the chars/4 heuristic; a nil
// logger falls back to slog.Default.
func New(store Store, embedder Embedder, counter TokenCounter, logger *slog.Logger) *Retriever {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		counter:  counter,
		logger:   logger,
	}
}

// Retrieve embeds the query, searches the owner's namespace and admits
// matches into the token budget. documentFilter, when non-empty, scopes the
// search to those document ids. Errors degrade to an empty result list:
// retrieval is advisory context for a consumer that can proceed without it.
func (r *Retriever) Retrieve(ctx context.Context, query, ownerID string, topK, maxTokens int, documentFilter []string) []Result {
	results, err := r.retrieve(ctx, query, ownerID, topK, maxTokens, documentFilter)
	if err != nil {
		r.logger.Warn("retrieval failed, returning no context", "owner", ownerID, "error", err)
		return nil
	}
	return results
}

func (r *Retriever) retrieve(ctx context.Context, query, ownerID string, topK, maxTokens int, documentFilter []string) ([]Result, error) {
	if topK <= 0 || maxTokens <= 0 {
		return nil, nil
	}

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter *vectorstore.Filter
	if len(documentFilter) > 0 {
		filter = &vectorstore.Filter{DocumentIDs: documentFilter}
	}

	namespace := document.NamespaceFor(document.NamespaceUserDocs, ownerID)
	matches, err := r.store.Query(ctx, namespace, vector, topK*overFetchFactor, filter)
	if err != nil {
		return nil, fmt.Errorf("query namespace %s: %w", namespace, err)
	}

	return r.admit(matches, topK, maxTokens), nil
}

// admit walks matches in rank order and stops at the first candidate whose
// admission would exceed the budget. No skip-and-continue past an oversized
// candidate: skipping would reorder relevance.
func (r *Retriever) admit(matches []vectorstore.Match, topK, maxTokens int) []Result {
	var results []Result
	usedTokens := 0

	for _, match := range matches {
		if len(results) == topK {
			break
		}

		text := stringField(match.Payload, "text")
		cost := r.counter.Count(text)
		if usedTokens+cost > maxTokens {
			break
		}
		usedTokens += cost

		results = append(results, Result{
			Text:         text,
			DocumentID:   stringField(match.Payload, "document_id"),
			DocumentName: stringField(match.Payload, "document_name"),
			ChunkIndex:   intField(match.Payload, "chunk_index"),
			ChunkType:    stringField(match.Payload, "type"),
			Priority:     stringField(match.Payload, "priority"),
			Score:        match.Score,
		})
	}

	return results
}

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func intField(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
