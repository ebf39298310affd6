package object

import (
	"context"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
)

// Repository defines the storage contract for observability objects.
type Repository interface {
	Create(ctx context.Context, doc envelope.Doc) (id string, err error)
	Get(ctx context.Context, id string) (envelope.DocInfo, error)
	MultiGet(ctx context.Context, ids []string) ([]envelope.DocInfo, error)
	Search(ctx context.Context, q query.Query) (total int, hits []envelope.DocInfo, err error)
	Update(ctx context.Context, id string, doc envelope.Doc) error
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) (map[string]db.BulkStatus, error)
}

// QueryBuilder turns a listing request into a store query.
type QueryBuilder interface {
	Build(req query.Request) (query.Query, error)
}
