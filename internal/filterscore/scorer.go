// Package filterscore validates ad-hoc structured filters and scores them
// against an owner's historical filter decisions.
package filterscore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docindex/internal/document"
	"github.com/bull/docindex/internal/vectorstore"
)

const (
	// violationPenalty is subtracted from confidence per validation error.
	violationPenalty = 0.2

	// noHistoryConfidence is returned when the owner has no prior decisions.
	noHistoryConfidence = 0.5

	// historyFetchLimit bounds how many prior decisions are compared.
	historyFetchLimit = 50
)

// Validation is the outcome of range and consistency checks on a filter set.
type Validation struct {
	IsValid    bool
	Confidence float64
	Errors     []string
}

// Decision is one recorded filter usage.
type Decision struct {
	OwnerID    string
	Filters    map[string]float64
	Confidence float64
	Result     string
	Timestamp  time.Time
}

// Store is the vector store surface the scorer needs.
type Store interface {
	EnsureNamespace(ctx context.Context, namespace string) error
	Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error)
}

// Scorer validates filters and scores them against history.
type Scorer struct {
	store  Store
	logger *slog.Logger
}

// New creates a filter scorer. store may be nil if only Validate is used.
func New(store Store, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{store: store, logger: logger}
}

// percentFields are scores bounded to [0, 100].
var percentFields = []string{"da", "pa", "dr", "authority", "spam", "spamScore", "trustFlow"}

// priceFields must be non-negative.
var priceFields = []string{"price", "cost", "budget", "fee"}

// Validate range-checks numeric filter fields and min/max pair consistency.
// Confidence starts at 1.0 and loses a fixed penalty per violation.
func (s *Scorer) Validate(filters map[string]float64) Validation {
	var errs []string

	for key, value := range filters {
		base := pairBase(key)
		switch {
		case matchesField(base, percentFields):
			if value < 0 || value > 100 {
				errs = append(errs, fmt.Sprintf("%s must be between 0 and 100, got %g", key, value))
			}
		case matchesField(base, priceFields):
			if value < 0 {
				errs = append(errs, fmt.Sprintf("%s must be non-negative, got %g", key, value))
			}
		}
	}

	// Min/Max pairs must not be inverted.
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !strings.HasSuffix(key, "Min") {
			continue
		}
		maxKey := strings.TrimSuffix(key, "Min") + "Max"
		if maxValue, ok := filters[maxKey]; ok && filters[key] > maxValue {
			errs = append(errs, fmt.Sprintf("%s (%g) exceeds %s (%g)", key, filters[key], maxKey, maxValue))
		}
	}

	confidence := 1.0 - violationPenalty*float64(len(errs))
	if confidence < 0 {
		confidence = 0
	}
	return Validation{
		IsValid:    len(errs) == 0,
		Confidence: confidence,
		Errors:     errs,
	}
}

func pairBase(key string) string {
	key = strings.TrimSuffix(key, "Min")
	key = strings.TrimSuffix(key, "Max")
	return key
}

func matchesField(base string, fields []string) bool {
	for _, field := range fields {
		if strings.EqualFold(base, field) {
			return true
		}
	}
	return false
}

// ScoreAgainstHistory compares the candidate filters with the owner's prior
// decisions and returns a confidence boosted from the best match. Owners
// with no history get 0.5.
func (s *Scorer) ScoreAgainstHistory(ctx context.Context, ownerID string, filters map[string]float64) (float64, error) {
	history, err := s.fetchDecisions(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("fetch filter history: %w", err)
	}
	if len(history) == 0 {
		return noHistoryConfidence, nil
	}

	best := 0.0
	for _, past := range history {
		if sim := filterSimilarity(filters, past.Filters); sim > best {
			best = sim
		}
	}

	// Half the similarity margin above the no-history baseline becomes boost.
	confidence := noHistoryConfidence + best*(1.0-noHistoryConfidence)
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence, nil
}

// filterSimilarity weighs key overlap at 0.6 and value agreement at 0.4.
// Values match at 1.0 when equal, 0.8 when within 10%, otherwise 0.
func filterSimilarity(candidate, past map[string]float64) float64 {
	if len(candidate) == 0 || len(past) == 0 {
		return 0
	}

	union := make(map[string]struct{}, len(candidate)+len(past))
	for key := range candidate {
		union[key] = struct{}{}
	}
	for key := range past {
		union[key] = struct{}{}
	}

	shared := 0
	valueSum := 0.0
	for key, value := range candidate {
		pastValue, ok := past[key]
		if !ok {
			continue
		}
		shared++
		valueSum += valueSimilarity(value, pastValue)
	}

	keyOverlap := float64(shared) / float64(len(union))
	avgValueSim := 0.0
	if shared > 0 {
		avgValueSim = valueSum / float64(shared)
	}
	return 0.6*keyOverlap + 0.4*avgValueSim
}

func valueSimilarity(a, b float64) float64 {
	if a == b {
		return 1.0
	}
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return 1.0
	}
	if math.Abs(a-b)/larger <= 0.1 {
		return 0.8
	}
	return 0
}

// RecordDecision appends a filter decision to the owner's namespace for
// later similarity lookups. Decisions are write-once.
func (s *Scorer) RecordDecision(ctx context.Context, ownerID string, filters map[string]float64, confidence float64, result string) error {
	namespace := document.NamespaceFor(document.NamespaceUserDocs, ownerID)
	if err := s.store.EnsureNamespace(ctx, namespace); err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}

	encoded, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}

	record := vectorstore.Record{
		ID:     "filter_decision_" + uuid.New().String(),
		Vector: vectorstore.ZeroVector(),
		Payload: map[string]any{
			"type":       document.TypeFilterDecision,
			"owner_id":   ownerID,
			"filters":    string(encoded),
			"confidence": confidence,
			"result":     result,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := s.store.Upsert(ctx, namespace, []vectorstore.Record{record}); err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

func (s *Scorer) fetchDecisions(ctx context.Context, ownerID string) ([]Decision, error) {
	namespace := document.NamespaceFor(document.NamespaceUserDocs, ownerID)

	matches, err := s.store.Query(ctx, namespace, vectorstore.ZeroVector(), historyFetchLimit, &vectorstore.Filter{
		Equals: map[string]string{
			"type":     document.TypeFilterDecision,
			"owner_id": ownerID,
		},
	})
	if err != nil {
		// A missing namespace just means no history yet.
		s.logger.Debug("no filter history", "owner", ownerID, "error", err)
		return nil, nil
	}

	decisions := make([]Decision, 0, len(matches))
	for _, match := range matches {
		decision := Decision{OwnerID: ownerID}
		if raw, ok := match.Payload["filters"].(string); ok {
			if err := json.Unmarshal([]byte(raw), &decision.Filters); err != nil {
				continue
			}
		}
		if c, ok := match.Payload["confidence"].(float64); ok {
			decision.Confidence = c
		}
		if r, ok := match.Payload["result"].(string); ok {
			decision.Result = r
		}
		if ts, ok := match.Payload["timestamp"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				decision.Timestamp = parsed
			}
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}
