package object

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
)

// memRepo is an in-memory Repository that records mutations.
type memRepo struct {
	mu      sync.Mutex
	docs    map[string]envelope.DocInfo
	nextID  int
	deleted []string

	lastQuery query.Query
	searchErr error
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string]envelope.DocInfo)}
}

func (m *memRepo) Create(_ context.Context, doc envelope.Doc) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("obj-%d", m.nextID)
	m.docs[id] = envelope.DocInfo{ID: id, Version: 1, SeqNo: int64(m.nextID), PrimaryTerm: 1, Doc: doc}
	return id, nil
}

func (m *memRepo) Get(_ context.Context, id string) (envelope.DocInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.docs[id]
	if !ok {
		return envelope.DocInfo{}, domain.NewNotFound(id)
	}
	return info, nil
}

func (m *memRepo) MultiGet(_ context.Context, ids []string) ([]envelope.DocInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []envelope.DocInfo
	for _, id := range ids {
		if info, ok := m.docs[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

func (m *memRepo) Search(_ context.Context, q query.Query) (int, []envelope.DocInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	if m.searchErr != nil {
		return 0, nil, m.searchErr
	}
	out := make([]envelope.DocInfo, 0, len(m.docs))
	for _, info := range m.docs {
		out = append(out, info)
	}
	return len(out), out, nil
}

func (m *memRepo) Update(_ context.Context, id string, doc envelope.Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.docs[id]
	if !ok {
		return domain.ErrUpdateFailed
	}
	info.Doc = doc
	info.Version++
	m.docs[id] = info
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrDeleteFailed
	}
	delete(m.docs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memRepo) BulkDelete(_ context.Context, ids []string) (map[string]db.BulkStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]db.BulkStatus, len(ids))
	for _, id := range ids {
		if _, ok := m.docs[id]; !ok {
			out[id] = db.StatusNotFound
			continue
		}
		delete(m.docs, id)
		m.deleted = append(m.deleted, id)
		out[id] = db.StatusOK
	}
	return out, nil
}

var (
	alice = &access.User{Name: "alice", Tenant: "t1", Roles: []string{"ops"}}
	bob   = &access.User{Name: "bob", Tenant: "t1", Roles: []string{"dev"}}
	eve   = &access.User{Name: "eve", Tenant: "t2", Roles: []string{"ops"}}
	admin = &access.User{Name: "root", Tenant: "t1", Roles: []string{"all_access"}}
)

func newTestService(t *testing.T, filterBy access.FilterBy) (*Service, *memRepo, *clock.Mock) {
	t.Helper()
	policy, err := access.NewPolicy(filterBy, []string{"all_access"}, true)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	repo := newMemRepo()
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(1_700_000_000_000))
	svc := New(repo, query.NewBuilder(domobj.Default()), policy).WithClock(clk)
	return svc, repo, clk
}

func notebook(t *testing.T, name string) domobj.Object {
	t.Helper()
	obj, err := domobj.New(domobj.TypeNotebook, &domobj.Notebook{Name: name})
	if err != nil {
		t.Fatalf("new notebook: %v", err)
	}
	return obj
}

func mustCreate(t *testing.T, svc *Service, u *access.User, name string) string {
	t.Helper()
	id, err := svc.Create(context.Background(), u, notebook(t, name))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}
