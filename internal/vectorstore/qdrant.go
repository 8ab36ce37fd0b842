// Package vectorstore provides namespace-isolated upsert, query and delete
// of vector records over Qdrant. Each namespace maps to its own collection,
// created lazily and idempotently on first use; queries and deletes are
// always scoped to exactly one namespace.
package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize groups point upserts for performance.
const upsertBatchSize = 100

// scrollBatchSize pages enumeration scrolls.
const scrollBatchSize = 100

// indexedPayloadFields are the filterable payload fields each namespace is
// indexed on. Without these indexes filtering degrades badly on large
// collections.
var indexedPayloadFields = []string{
	"document_id",
	"owner_id",
	"type",
	"priority",
}

// Store wraps the Qdrant client with connection management, health checks
// and namespace lifecycle.
type Store struct {
	client *qdrant.Client
	host   string
	port   int

	mu      sync.Mutex
	ensured map[string]bool
}

// NewStore creates a Qdrant-backed store with health validation. It performs
// a health check with retry on startup and fails fast if Qdrant is
// unreachable.
func NewStore(host string, port int) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &Store{
		client:  client,
		host:    host,
		port:    port,
		ensured: make(map[string]bool),
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureNamespace creates the collection backing a namespace if it does not
// exist. Idempotent; under concurrent first-use "already exists" is success.
// Creation parameters (1536 dimensions, cosine distance) are fixed
// constants, not configuration.
func (s *Store) EnsureNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	if s.ensured[namespace] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	exists := false
	for _, name := range collections {
		if name == namespace {
			exists = true
			break
		}
	}

	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: namespace,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		// A concurrent creator winning the race is not a failure.
		if err != nil && !alreadyExists(err) {
			return fmt.Errorf("failed to create collection %s: %w", namespace, err)
		}

		if err := s.createPayloadIndexes(ctx, namespace); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.ensured[namespace] = true
	s.mu.Unlock()
	return nil
}

func alreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func (s *Store) createPayloadIndexes(ctx context.Context, namespace string) error {
	for _, field := range indexedPayloadFields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: namespace,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil && !alreadyExists(err) {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// DropNamespace deletes the collection backing a namespace.
func (s *Store) DropNamespace(ctx context.Context, namespace string) error {
	if err := s.client.DeleteCollection(ctx, namespace); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", namespace, err)
	}
	s.mu.Lock()
	delete(s.ensured, namespace)
	s.mu.Unlock()
	return nil
}

// pointID derives the Qdrant point id for a record id. UUIDv5 keeps the
// derivation deterministic, so re-upserting a record replaces it.
func pointID(recordID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String())
}

// Upsert writes records into a namespace, batched with retry. Idempotent:
// re-upserting an id replaces the record. No partial-application guarantee;
// callers retry the whole batch on failure.
func (s *Store) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	for i, record := range records {
		if len(record.Vector) != VectorDimension {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(record.Vector), VectorDimension)
		}
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))

		batch := records[start:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for i, record := range batch {
			// Clone before tagging the record id; the caller owns the map.
			payload := make(map[string]any, len(record.Payload)+1)
			for key, value := range record.Payload {
				payload[key] = value
			}
			payload["record_id"] = record.ID

			points[i] = &qdrant.PointStruct{
				Id:      pointID(record.ID),
				Vectors: qdrant.NewVectors(record.Vector...),
				Payload: qdrant.NewValueMap(payload),
			}
		}

		if err := s.upsertWithRetry(ctx, namespace, points); err != nil {
			return fmt.Errorf("%w: batch %d-%d: %v", ErrUpsertFailed, start, end, err)
		}
	}

	return nil
}

// upsertWithRetry performs an upsert with exponential backoff retry.
func (s *Store) upsertWithRetry(ctx context.Context, namespace string, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: namespace,
			Points:         points,
		})
		return err
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Query runs a similarity search in one namespace with an optional metadata
// filter. Matches come back in descending score order with full payloads.
func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: namespace,
		Query:          qdrant.NewQuery(vector...),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		payload := payloadToMap(result.Payload)
		matches = append(matches, Match{
			ID:      stringField(payload, "record_id"),
			Score:   result.Score,
			Payload: payload,
		})
	}
	return matches, nil
}

// Delete removes records by record id from one namespace.
func (s *Store) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	points := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: namespace,
		Points:         qdrant.NewPointsSelector(points...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d points from %s: %w", len(ids), namespace, err)
	}
	return nil
}

// DeleteByFilter removes every record in a namespace whose payload matches
// the filter. Enumerate-then-delete: scroll the matching record ids, then
// delete them, so the operation stays portable to stores without native
// filtered deletes.
func (s *Store) DeleteByFilter(ctx context.Context, namespace string, filter *Filter) (int, error) {
	ids, err := s.enumerateIDs(ctx, namespace, filter)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.Delete(ctx, namespace, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// enumerateIDs scrolls every record id in a namespace matching the filter.
func (s *Store) enumerateIDs(ctx context.Context, namespace string, filter *Filter) ([]string, error) {
	var ids []string
	var offset *qdrant.PointId

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: namespace,
			Filter:         buildFilter(filter),
			Limit:          qdrant.PtrOf(uint32(scrollBatchSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("record_id"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scroll: %v", ErrQueryFailed, err)
		}

		for _, result := range results {
			payload := payloadToMap(result.Payload)
			if id := stringField(payload, "record_id"); id != "" {
				ids = append(ids, id)
			}
		}

		if len(results) < scrollBatchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	return ids, nil
}

// Count returns how many records in a namespace match the filter.
func (s *Store) Count(ctx context.Context, namespace string, filter *Filter) (int, error) {
	ids, err := s.enumerateIDs(ctx, namespace, filter)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// buildFilter translates a Filter into Qdrant conditions. nil means no
// filtering.
func buildFilter(filter *Filter) *qdrant.Filter {
	if filter == nil {
		return nil
	}

	var must []*qdrant.Condition
	for field, value := range filter.Equals {
		must = append(must, qdrant.NewMatch(field, value))
	}
	if len(filter.DocumentIDs) > 0 {
		must = append(must, qdrant.NewMatchKeywords("document_id", filter.DocumentIDs...))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// payloadToMap converts a Qdrant payload into plain Go values.
func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(value *qdrant.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.Values))
		for _, v := range kind.ListValue.Values {
			items = append(items, valueToAny(v))
		}
		return items
	case *qdrant.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.Fields))
		for k, v := range kind.StructValue.Fields {
			fields[k] = valueToAny(v)
		}
		return fields
	default:
		return nil
	}
}

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
