// Package memory stores prior conversations as a special document class and
// retrieves them with user-level isolation. Records are write-once and
// always private to their owner.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docindex/internal/document"
	"github.com/bull/docindex/internal/vectorstore"
)

// maxContentLen head-truncates stored conversation content.
const maxContentLen = 2000

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Record is a stored conversation.
type Record struct {
	ID           string
	OwnerID      string
	Content      string
	Summary      string
	MessageCount int
	Timestamp    time.Time
	IsPrivate    bool
}

// Store is the vector store surface conversation memory needs.
type Store interface {
	EnsureNamespace(ctx context.Context, namespace string) error
	Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error)
	DeleteByFilter(ctx context.Context, namespace string, filter *vectorstore.Filter) (int, error)
}

// Embedder turns the conversation blob into a vector.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Summarizer produces the one-line summary stored with a record. Optional;
// without one the head of the first user message is used.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Memory stores and retrieves conversation records.
type Memory struct {
	store      Store
	embedder   Embedder
	summarizer Summarizer
	logger     *slog.Logger
}

// New creates a conversation memory. summarizer may be nil.
func New(store Store, embedder Embedder, summarizer Summarizer, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		store:      store,
		embedder:   embedder,
		summarizer: summarizer,
		logger:     logger,
	}
}

// StoreConversation concatenates role-tagged messages, embeds the blob and
// upserts one private record into the owner's namespace. Which exchanges
// are worth remembering is the caller's judgment.
func (m *Memory) StoreConversation(ctx context.Context, ownerID string, messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("no messages to store")
	}

	var blob strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&blob, "%s: %s\n", msg.Role, msg.Content)
	}
	content := headTruncate(blob.String(), maxContentLen)

	summary := m.summarize(ctx, content, messages)

	vector, err := m.embedder.EmbedOne(ctx, content)
	if err != nil {
		return fmt.Errorf("embed conversation: %w", err)
	}

	namespace := document.NamespaceFor(document.NamespaceUserDocs, ownerID)
	if err := m.store.EnsureNamespace(ctx, namespace); err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}

	record := vectorstore.Record{
		ID:     "conversation_" + uuid.New().String(),
		Vector: vector,
		Payload: map[string]any{
			"type":          document.TypeConversation,
			"owner_id":      ownerID,
			"text":          content,
			"summary":       summary,
			"message_count": len(messages),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"is_private":    true,
		},
	}

	if err := m.store.Upsert(ctx, namespace, []vectorstore.Record{record}); err != nil {
		return fmt.Errorf("store conversation: %w", err)
	}

	m.logger.Debug("stored conversation", "owner", ownerID, "messages", len(messages))
	return nil
}

func (m *Memory) summarize(ctx context.Context, content string, messages []Message) string {
	if m.summarizer != nil {
		summary, err := m.summarizer.Summarize(ctx, content)
		if err == nil && summary != "" {
			return summary
		}
		m.logger.Warn("conversation summarization failed, using head", "error", err)
	}
	for _, msg := range messages {
		if strings.EqualFold(msg.Role, "user") {
			return headTruncate(msg.Content, 120)
		}
	}
	return headTruncate(content, 120)
}

// Retrieve lists the owner's conversation records with a pure metadata
// filter: a zero query vector, scoped to type=conversation.
func (m *Memory) Retrieve(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	namespace := document.NamespaceFor(document.NamespaceUserDocs, ownerID)

	matches, err := m.store.Query(ctx, namespace, vectorstore.ZeroVector(), limit, &vectorstore.Filter{
		Equals: map[string]string{
			"type":     document.TypeConversation,
			"owner_id": ownerID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	records := make([]Record, 0, len(matches))
	for _, match := range matches {
		record := Record{
			ID:        match.ID,
			OwnerID:   ownerID,
			Content:   stringField(match.Payload, "text"),
			Summary:   stringField(match.Payload, "summary"),
			IsPrivate: true,
		}
		if count, ok := match.Payload["message_count"].(int64); ok {
			record.MessageCount = int(count)
		}
		if ts, err := time.Parse(time.RFC3339, stringField(match.Payload, "timestamp")); err == nil {
			record.Timestamp = ts
		}
		records = append(records, record)
	}
	return records, nil
}

// DeleteUserData removes every record whose owner_id matches, conversation
// and document alike, from the owner's namespace and the shared catalog.
// Right to erasure: nothing owned by the user survives.
func (m *Memory) DeleteUserData(ctx context.Context, ownerID string) (int, error) {
	filter := &vectorstore.Filter{Equals: map[string]string{"owner_id": ownerID}}

	total := 0
	namespaces := []string{
		document.NamespaceFor(document.NamespaceUserDocs, ownerID),
		document.NamespaceFor(document.NamespaceSharedCatalog, ""),
	}
	for _, namespace := range namespaces {
		deleted, err := m.store.DeleteByFilter(ctx, namespace, filter)
		if err != nil {
			return total, fmt.Errorf("erase %s: %w", namespace, err)
		}
		total += deleted
	}

	m.logger.Info("deleted user data", "owner", ownerID, "records", total)
	return total, nil
}

func headTruncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
