// Package document defines the shared data model: documents, structural
// metadata variants, chunks and the namespace derivation scheme.
package document

import "time"

// Document is an ingested file. Created on upload, immutable once chunked;
// a re-upload supersedes rather than mutates, so callers delete the old
// document's chunks first.
type Document struct {
	ID            string
	Filename      string
	OwnerID       string
	ByteSize      int
	DeclaredType  string
	ExtractedText string
	WordCount     int
	Structure     Structure
	UploadedAt    time.Time
}
