package document

import "fmt"

// NamespaceKind selects which partition a record belongs to. Namespaces are
// the unit of isolation: every query and delete is scoped to exactly one.
type NamespaceKind int

const (
	// NamespaceUserDocs holds one user's documents, chunks, conversation
	// records and filter decisions.
	NamespaceUserDocs NamespaceKind = iota
	// NamespaceSharedCatalog holds the cross-user corpus (publisher catalog).
	NamespaceSharedCatalog
)

// sharedCatalogNamespace is the single fixed namespace for shared content.
const sharedCatalogNamespace = "shared_catalog_docs"

// NamespaceFor derives the namespace string for a kind and owner. All
// namespace construction goes through here so the isolation scheme stays
// auditable in one place. ownerID is ignored for shared kinds.
func NamespaceFor(kind NamespaceKind, ownerID string) string {
	switch kind {
	case NamespaceSharedCatalog:
		return sharedCatalogNamespace
	default:
		return fmt.Sprintf("user_%s_docs", ownerID)
	}
}
