package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on narrow sub-interfaces
type Store interface {
	Pinger
	IndexManager
	DocumentStore
	Searcher
	Reindexer
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	// CreateIndex creates an index. An existing index yields ErrIndexExists.
	// Empty Prefixes default to the document prefix of the index.
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// DropIndex removes an index together with its documents.
	// A missing index yields ErrIndexNotFound.
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// DocumentStore provides per-document operations within an index.
type DocumentStore interface {
	// IndexDocument writes body under id, assigning an id when empty.
	// With createOnly an existing document is left untouched and ResultNoop returned.
	IndexDocument(ctx context.Context, index, id string, body []byte, createOnly bool) (IndexResponse, error)
	// GetDocument returns ErrKeyNotFound when the document is absent.
	GetDocument(ctx context.Context, index, id string) (Document, error)
	// MultiGet returns one Document per id in order; absent ones have Found=false.
	MultiGet(ctx context.Context, index string, ids []string) ([]Document, error)
	UpdateDocument(ctx context.Context, index, id string, body []byte) (Result, error)
	DeleteDocument(ctx context.Context, index, id string) (Result, error)
	BulkDelete(ctx context.Context, index string, ids []string) (map[string]BulkStatus, error)
}

// Searcher provides search over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}

// Reindexer copies every document of one index into another, unmodified.
type Reindexer interface {
	Reindex(ctx context.Context, source, dest string) (int, error)
}

// Result is the outcome of a single-document write.
type Result string

// Write results.
const (
	ResultCreated  Result = "created"
	ResultUpdated  Result = "updated"
	ResultDeleted  Result = "deleted"
	ResultNotFound Result = "not_found"
	ResultNoop     Result = "noop"
)

// BulkStatus is the per-id outcome of a bulk operation.
type BulkStatus string

// Bulk statuses.
const (
	StatusOK            BulkStatus = "OK"
	StatusNotFound      BulkStatus = "NOT_FOUND"
	StatusInternalError BulkStatus = "INTERNAL_SERVER_ERROR"
)

// IndexResponse is the reply to IndexDocument.
type IndexResponse struct {
	ID      string
	Result  Result
	Version int64
	SeqNo   int64
}

// Document is a stored document with its versioning.
type Document struct {
	ID          string
	Found       bool
	Source      []byte
	Version     int64
	SeqNo       int64
	PrimaryTerm int64
}
