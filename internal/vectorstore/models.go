package vectorstore

// VectorDimension is the embedding size every namespace is created with.
// Must match the embedding client's pinned dimension.
const VectorDimension = 1536

// Record is one (id, vector, payload) triple. ID is the deterministic
// record id (document.RecordID for chunks); the full chunk text rides in
// the payload so retrieval needs no secondary fetch.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Match is one similarity search hit.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Filter is an optional metadata predicate scoping a query or delete to a
// subset of one namespace. Conditions are conjunctive.
type Filter struct {
	// Equals requires payload[field] == value for every entry.
	Equals map[string]string
	// DocumentIDs, when non-empty, requires payload["document_id"] to be
	// one of the listed ids.
	DocumentIDs []string
}

// ZeroVector returns the all-zero query vector used for pure metadata
// filtering (e.g. conversation listing, filter-decision enumeration).
func ZeroVector() []float32 {
	return make([]float32, VectorDimension)
}
