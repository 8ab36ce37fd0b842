package vectorstore

import "errors"

var (
	ErrUnreachable       = errors.New("qdrant server unreachable")
	ErrNamespaceMissing  = errors.New("namespace not found")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrUpsertFailed      = errors.New("upsert failed")
	ErrQueryFailed       = errors.New("query failed")
)
