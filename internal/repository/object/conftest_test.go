package object

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
)

// mockStore implements the consumer interface for tests. Index lifecycle
// calls default to "both indexes already migrated".
type mockStore struct {
	createIndexFn    func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn    func(ctx context.Context, name string) (bool, error)
	dropIndexFn      func(ctx context.Context, name string) error
	reindexFn        func(ctx context.Context, source, dest string) (int, error)
	indexDocumentFn  func(ctx context.Context, index, id string, body []byte, createOnly bool) (db.IndexResponse, error)
	getDocumentFn    func(ctx context.Context, index, id string) (db.Document, error)
	multiGetFn       func(ctx context.Context, index string, ids []string) ([]db.Document, error)
	updateDocumentFn func(ctx context.Context, index, id string, body []byte) (db.Result, error)
	deleteDocumentFn func(ctx context.Context, index, id string) (db.Result, error)
	bulkDeleteFn     func(ctx context.Context, index string, ids []string) (map[string]db.BulkStatus, error)
	searchFn         func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return name == DefaultIndex, nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) Reindex(ctx context.Context, source, dest string) (int, error) {
	if m.reindexFn != nil {
		return m.reindexFn(ctx, source, dest)
	}
	return 0, nil
}

func (m *mockStore) IndexDocument(
	ctx context.Context, index, id string, body []byte, createOnly bool,
) (db.IndexResponse, error) {
	if m.indexDocumentFn != nil {
		return m.indexDocumentFn(ctx, index, id, body, createOnly)
	}
	return db.IndexResponse{ID: "generated", Result: db.ResultCreated, Version: 1}, nil
}

func (m *mockStore) GetDocument(ctx context.Context, index, id string) (db.Document, error) {
	if m.getDocumentFn != nil {
		return m.getDocumentFn(ctx, index, id)
	}
	return db.Document{}, db.ErrKeyNotFound
}

func (m *mockStore) MultiGet(ctx context.Context, index string, ids []string) ([]db.Document, error) {
	if m.multiGetFn != nil {
		return m.multiGetFn(ctx, index, ids)
	}
	out := make([]db.Document, len(ids))
	for i, id := range ids {
		out[i] = db.Document{ID: id}
	}
	return out, nil
}

func (m *mockStore) UpdateDocument(ctx context.Context, index, id string, body []byte) (db.Result, error) {
	if m.updateDocumentFn != nil {
		return m.updateDocumentFn(ctx, index, id, body)
	}
	return db.ResultUpdated, nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, index, id string) (db.Result, error) {
	if m.deleteDocumentFn != nil {
		return m.deleteDocumentFn(ctx, index, id)
	}
	return db.ResultDeleted, nil
}

func (m *mockStore) BulkDelete(ctx context.Context, index string, ids []string) (map[string]db.BulkStatus, error) {
	if m.bulkDeleteFn != nil {
		return m.bulkDeleteFn(ctx, index, ids)
	}
	out := make(map[string]db.BulkStatus, len(ids))
	for _, id := range ids {
		out[id] = db.StatusOK
	}
	return out, nil
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestCodec() *envelope.Codec {
	return envelope.NewCodec(domobj.Default(), nil)
}

func newTestRepo(t *testing.T, opts ...Option) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo, err := New(ms, newTestCodec(), opts...)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo, ms
}

func testDoc(t *testing.T) envelope.Doc {
	t.Helper()
	obj, err := domobj.New(domobj.TypeSavedQuery, &domobj.SavedQuery{
		Name:        "errors",
		Description: "5xx responses",
		Query:       "source=logs | where status >= 500",
	})
	if err != nil {
		t.Fatalf("new object: %v", err)
	}
	meta, err := envelope.NewMetadata(
		time.UnixMilli(2_000), time.UnixMilli(1_000), "acme", []string{"role:ops"},
	)
	if err != nil {
		t.Fatalf("new metadata: %v", err)
	}
	return envelope.Doc{Metadata: meta, Object: obj}
}

func testSource(t *testing.T) []byte {
	t.Helper()
	body, err := newTestCodec().Serialize(testDoc(t))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return body
}
