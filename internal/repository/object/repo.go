package object

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
	"github.com/kailas-cloud/obstore/internal/metrics"
)

// DefaultOperationTimeout bounds every gateway call.
const DefaultOperationTimeout = 30 * time.Second

// store is the consumer interface for the document store (ISP).
//
//nolint:interfacebloat // gateway drives the index lifecycle and every document operation
type store interface {
	indexStore
	IndexDocument(ctx context.Context, index, id string, body []byte, createOnly bool) (db.IndexResponse, error)
	GetDocument(ctx context.Context, index, id string) (db.Document, error)
	MultiGet(ctx context.Context, index string, ids []string) ([]db.Document, error)
	UpdateDocument(ctx context.Context, index, id string, body []byte) (db.Result, error)
	DeleteDocument(ctx context.Context, index, id string) (db.Result, error)
	BulkDelete(ctx context.Context, index string, ids []string) (map[string]db.BulkStatus, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Repo is the persistence gateway for observability objects. It owns the
// index lifecycle: the first call that needs the index runs the legacy
// migration.
type Repo struct {
	store    store
	codec    *envelope.Codec
	index    string
	legacy   string
	timeout  time.Duration
	logger   *zap.Logger
	migrator *migrator
}

// Option configures the repository.
type Option func(*Repo)

// WithIndexNames overrides the target and legacy index names.
// An empty legacy name disables the migration copy.
func WithIndexNames(index, legacy string) Option {
	return func(r *Repo) {
		r.index = index
		r.legacy = legacy
	}
}

// WithOperationTimeout sets the per-call timeout.
func WithOperationTimeout(d time.Duration) Option {
	return func(r *Repo) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an object repository. The index schema is derived from the
// codec's registry.
func New(s store, codec *envelope.Codec, opts ...Option) (*Repo, error) {
	r := &Repo{
		store:   s,
		codec:   codec,
		index:   DefaultIndex,
		legacy:  DefaultLegacyIndex,
		timeout: DefaultOperationTimeout,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}

	def, err := buildIndex(r.index, codec.Registry())
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", r.index, err)
	}
	r.migrator = newMigrator(s, def, r.legacy, r.timeout, r.logger)
	return r, nil
}

// Index returns the name of the index documents are written to.
func (r *Repo) Index() string { return r.index }

// MigrationState reports the legacy migration state.
func (r *Repo) MigrationState() string { return r.migrator.State() }

// EnsureIndex runs the index migration if it has not completed yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	err := r.migrator.ensure(ctx)
	metrics.ObserveStoreOp("ensure_index", start, err)
	return storeError("ensure index", err)
}

// Create stores a new document under a store-assigned id.
func (r *Repo) Create(ctx context.Context, doc envelope.Doc) (string, error) {
	body, err := r.codec.Serialize(doc)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}

	var resp db.IndexResponse
	err = r.call(ctx, "create", func(ctx context.Context) error {
		var err error
		resp, err = r.store.IndexDocument(ctx, r.index, "", body, true)
		return err
	})
	if err != nil {
		return "", err
	}
	if resp.Result != db.ResultCreated {
		return "", fmt.Errorf("create %s: store reported %q: %w", resp.ID, resp.Result, domain.ErrCreateFailed)
	}
	return resp.ID, nil
}

// Get returns the document with the given id.
func (r *Repo) Get(ctx context.Context, id string) (envelope.DocInfo, error) {
	var raw db.Document
	err := r.call(ctx, "get", func(ctx context.Context) error {
		var err error
		raw, err = r.store.GetDocument(ctx, r.index, id)
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return envelope.DocInfo{}, domain.NewNotFound(id)
		}
		return envelope.DocInfo{}, err
	}
	if !raw.Found {
		return envelope.DocInfo{}, domain.NewNotFound(id)
	}
	return r.docInfo(raw)
}

// MultiGet returns the documents that exist among ids, in request order.
// Missing ids are silently omitted.
func (r *Repo) MultiGet(ctx context.Context, ids []string) ([]envelope.DocInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var raws []db.Document
	err := r.call(ctx, "multi_get", func(ctx context.Context) error {
		var err error
		raws, err = r.store.MultiGet(ctx, r.index, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]envelope.DocInfo, 0, len(raws))
	for _, raw := range raws {
		if !raw.Found {
			continue
		}
		info, err := r.docInfo(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Search executes q and returns the total number of matches and one page of hits.
func (r *Repo) Search(ctx context.Context, q query.Query) (int, []envelope.DocInfo, error) {
	var res *db.SearchResult
	err := r.call(ctx, "search", func(ctx context.Context) error {
		var err error
		res, err = r.store.Search(ctx, &db.SearchQuery{Index: r.index, Query: q})
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	if res == nil {
		return 0, nil, nil
	}

	out := make([]envelope.DocInfo, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hit.Found = true
		info, err := r.docInfo(hit)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, info)
	}
	return res.Total, out, nil
}

// Update replaces the stored document.
func (r *Repo) Update(ctx context.Context, id string, doc envelope.Doc) error {
	body, err := r.codec.Serialize(doc)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	var result db.Result
	err = r.call(ctx, "update", func(ctx context.Context) error {
		var err error
		result, err = r.store.UpdateDocument(ctx, r.index, id, body)
		return err
	})
	if err != nil {
		return err
	}
	if result != db.ResultUpdated {
		return fmt.Errorf("update %s: store reported %q: %w", id, result, domain.ErrUpdateFailed)
	}
	return nil
}

// Delete removes one document.
func (r *Repo) Delete(ctx context.Context, id string) error {
	var result db.Result
	err := r.call(ctx, "delete", func(ctx context.Context) error {
		var err error
		result, err = r.store.DeleteDocument(ctx, r.index, id)
		return err
	})
	if err != nil {
		return err
	}
	if result != db.ResultDeleted {
		return fmt.Errorf("delete %s: store reported %q: %w", id, result, domain.ErrDeleteFailed)
	}
	return nil
}

// BulkDelete removes ids and reports a per-id status.
func (r *Repo) BulkDelete(ctx context.Context, ids []string) (map[string]db.BulkStatus, error) {
	if len(ids) == 0 {
		return map[string]db.BulkStatus{}, nil
	}

	var statuses map[string]db.BulkStatus
	err := r.call(ctx, "bulk_delete", func(ctx context.Context) error {
		var err error
		statuses, err = r.store.BulkDelete(ctx, r.index, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// call runs fn under the operation timeout after the index migration,
// records metrics and maps store failures to domain errors.
func (r *Repo) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := r.migrator.ensure(ctx)
	if err == nil {
		err = fn(ctx)
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		metrics.ObserveStoreOp(op, start, nil)
		return err //nolint:wrapcheck // mapped by caller
	}
	metrics.ObserveStoreOp(op, start, err)
	return storeError(op, err)
}

func (r *Repo) docInfo(raw db.Document) (envelope.DocInfo, error) {
	doc, err := r.codec.Parse(raw.Source)
	if err != nil {
		r.logger.Error("stored document unreadable", zap.String("id", raw.ID), zap.Error(err))
		return envelope.DocInfo{}, fmt.Errorf("stored document %s: %v: %w", raw.ID, err, domain.ErrInvariantViolation)
	}
	return envelope.DocInfo{
		ID:          raw.ID,
		Version:     raw.Version,
		SeqNo:       raw.SeqNo,
		PrimaryTerm: raw.PrimaryTerm,
		Doc:         doc,
	}, nil
}

// storeError maps a failed store call onto the domain error taxonomy.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
}
