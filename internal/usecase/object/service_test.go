package object

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
)

func TestService_Lifecycle(t *testing.T) {
	svc, _, clk := newTestService(t, access.FilterNone)
	ctx := context.Background()
	u := &access.User{Name: "alice", Tenant: "t1"}

	id, err := svc.Create(ctx, u, notebook(t, "test"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(ctx, u, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Doc.Tenant != "t1" {
		t.Errorf("tenant = %q, want t1", got.Doc.Tenant)
	}
	if !got.Doc.CreatedTime.Equal(got.Doc.UpdatedTime) {
		t.Errorf("created %v != updated %v", got.Doc.CreatedTime, got.Doc.UpdatedTime)
	}
	created := got.Doc.CreatedTime

	clk.Add(5 * time.Second)
	if err := svc.Update(ctx, u, id, notebook(t, "renamed")); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = svc.Get(ctx, u, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	nb, ok := got.Doc.Object.Payload().(*domobj.Notebook)
	if !ok || nb.Name != "renamed" {
		t.Errorf("payload = %+v, want renamed notebook", got.Doc.Object.Payload())
	}
	if !got.Doc.CreatedTime.Equal(created) {
		t.Errorf("created time changed: %v -> %v", created, got.Doc.CreatedTime)
	}
	if !got.Doc.UpdatedTime.After(created) {
		t.Errorf("updated time %v did not advance past %v", got.Doc.UpdatedTime, created)
	}

	if _, err := svc.Delete(ctx, u, []string{id}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, u, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestService_CreateStampsCaller(t *testing.T) {
	svc, repo, clk := newTestService(t, access.FilterRoles)

	id := mustCreate(t, svc, alice, "nb")
	info := repo.docs[id]

	if info.Doc.Tenant != "t1" {
		t.Errorf("tenant = %q", info.Doc.Tenant)
	}
	want := []string{"User:alice", "Role:ops"}
	if !slices.Equal(info.Doc.Access, want) {
		t.Errorf("access = %v, want %v", info.Doc.Access, want)
	}
	if !info.Doc.CreatedTime.Equal(clk.Now()) {
		t.Errorf("created = %v, want %v", info.Doc.CreatedTime, clk.Now())
	}
}

func TestService_CreateSystemCaller(t *testing.T) {
	svc, repo, _ := newTestService(t, access.FilterRoles)

	id := mustCreate(t, svc, nil, "nb")
	info := repo.docs[id]
	if info.Doc.Tenant != access.DefaultTenant {
		t.Errorf("tenant = %q, want default", info.Doc.Tenant)
	}
	if len(info.Doc.Access) != 0 {
		t.Errorf("access = %v, want empty", info.Doc.Access)
	}
}

func TestService_CreateRejects(t *testing.T) {
	t.Run("empty object", func(t *testing.T) {
		svc, _, _ := newTestService(t, access.FilterNone)
		_, err := svc.Create(context.Background(), alice, domobj.Object{})
		if !errors.Is(err, domain.ErrMalformedRequest) {
			t.Fatalf("expected ErrMalformedRequest, got %v", err)
		}
	})

	t.Run("no backend roles", func(t *testing.T) {
		svc, repo, _ := newTestService(t, access.FilterBackendRoles)
		_, err := svc.Create(context.Background(), alice, notebook(t, "nb"))
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if len(repo.docs) != 0 {
			t.Error("nothing must be stored")
		}
	})
}

func TestService_GetAccess(t *testing.T) {
	svc, _, _ := newTestService(t, access.FilterRoles)
	ctx := context.Background()
	id := mustCreate(t, svc, alice, "nb")

	tests := []struct {
		name    string
		user    *access.User
		wantErr error
	}{
		{"owner", alice, nil},
		{"system caller", nil, nil},
		{"tenant admin", admin, nil},
		{"no shared role", bob, domain.ErrForbidden},
		{"other tenant", eve, domain.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Get(ctx, tt.user, id)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestService_NotFoundBeforeForbidden(t *testing.T) {
	svc, _, _ := newTestService(t, access.FilterUser)
	ctx := context.Background()

	if _, err := svc.Get(ctx, eve, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("get: expected ErrNotFound, got %v", err)
	}
	if err := svc.Update(ctx, eve, "missing", notebook(t, "x")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Delete(ctx, eve, []string{"missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestService_UpdateForbiddenLeavesDocument(t *testing.T) {
	svc, repo, _ := newTestService(t, access.FilterUser)
	ctx := context.Background()
	id := mustCreate(t, svc, alice, "original")

	err := svc.Update(ctx, bob, id, notebook(t, "hijacked"))
	var fe *domain.ForbiddenError
	if !errors.As(err, &fe) || fe.ID != id {
		t.Fatalf("expected ForbiddenError for %s, got %v", id, err)
	}
	nb := repo.docs[id].Doc.Object.Payload().(*domobj.Notebook)
	if nb.Name != "original" {
		t.Errorf("name = %q, want original", nb.Name)
	}
}

func TestService_UpdateClockBehindCreation(t *testing.T) {
	svc, repo, clk := newTestService(t, access.FilterNone)
	ctx := context.Background()
	id := mustCreate(t, svc, alice, "nb")
	created := repo.docs[id].Doc.CreatedTime

	clk.Set(created.Add(-time.Minute))
	if err := svc.Update(ctx, alice, id, notebook(t, "nb2")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := repo.docs[id].Doc.UpdatedTime; !got.Equal(created) {
		t.Errorf("updated = %v, want clamped to %v", got, created)
	}
}

func TestService_UpdateSystemCallerKeepsOwnership(t *testing.T) {
	svc, repo, _ := newTestService(t, access.FilterRoles)
	ctx := context.Background()
	id := mustCreate(t, svc, alice, "nb")

	if err := svc.Update(ctx, nil, id, notebook(t, "nb2")); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc := repo.docs[id].Doc
	if doc.Tenant != "t1" || !slices.Contains(doc.Access, "User:alice") {
		t.Errorf("ownership lost: tenant=%q access=%v", doc.Tenant, doc.Access)
	}
}

func TestService_GetMany(t *testing.T) {
	svc, _, _ := newTestService(t, access.FilterNone)
	ctx := context.Background()
	a := mustCreate(t, svc, alice, "a")
	b := mustCreate(t, svc, alice, "b")

	infos, err := svc.GetMany(ctx, alice, []string{b, a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 || infos[0].ID != b || infos[1].ID != a {
		t.Errorf("infos = %+v", infos)
	}

	_, err = svc.GetMany(ctx, alice, []string{a, "x", "y"})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !slices.Equal(nf.IDs, []string{"x", "y"}) {
		t.Errorf("missing = %v, want [x y]", nf.IDs)
	}
}

func TestService_BulkDeleteMissingIsAllOrNothing(t *testing.T) {
	svc, repo, _ := newTestService(t, access.FilterNone)
	ctx := context.Background()
	a := mustCreate(t, svc, alice, "a")

	_, err := svc.Delete(ctx, alice, []string{a, "b"})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || !slices.Equal(nf.IDs, []string{"b"}) {
		t.Fatalf("expected NotFound for [b], got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing", repo.deleted)
	}
	if _, ok := repo.docs[a]; !ok {
		t.Error("a must survive")
	}
}

func TestService_BulkDeleteForbiddenIsAllOrNothing(t *testing.T) {
	svc, repo, _ := newTestService(t, access.FilterNone)
	ctx := context.Background()
	a := mustCreate(t, svc, alice, "a")
	c := mustCreate(t, svc, eve, "c")

	_, err := svc.Delete(ctx, alice, []string{a, c})
	var fe *domain.ForbiddenError
	if !errors.As(err, &fe) || fe.ID != c {
		t.Fatalf("expected Forbidden for %s, got %v", c, err)
	}
	if len(repo.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing", repo.deleted)
	}
}

func TestService_BulkDelete(t *testing.T) {
	svc, repo, _ := newTestService(t, access.FilterNone)
	ctx := context.Background()
	a := mustCreate(t, svc, alice, "a")
	b := mustCreate(t, svc, alice, "b")

	statuses, err := svc.Delete(ctx, alice, []string{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statuses[a] != db.StatusOK || statuses[b] != db.StatusOK {
		t.Errorf("statuses = %v", statuses)
	}
	if len(repo.docs) != 0 {
		t.Errorf("docs left = %d", len(repo.docs))
	}
}

func TestService_DeleteNoIDs(t *testing.T) {
	svc, _, _ := newTestService(t, access.FilterNone)
	if _, err := svc.Delete(context.Background(), alice, []string{""}); !errors.Is(err, domain.ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}
}

func TestService_ListScopesQuery(t *testing.T) {
	tests := []struct {
		name       string
		user       *access.User
		tenant     string
		wantAccess []string
	}{
		{"role filtered", bob, "t1", []string{"Role:dev"}},
		{"admin unfiltered", admin, "t1", nil},
		{"system caller", nil, access.DefaultTenant, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t, access.FilterRoles)

			page, err := svc.List(context.Background(), tt.user, ListRequest{
				Types:   []domobj.Type{domobj.TypeNotebook},
				Filters: map[string]string{"name": "ops"},
				From:    5,
				Size:    10,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if page.Start != 5 {
				t.Errorf("start = %d, want 5", page.Start)
			}

			q := repo.lastQuery
			if q.From != 5 || q.Size != 10 {
				t.Errorf("page = %d/%d", q.From, q.Size)
			}
			first := q.Clauses[0]
			if first.Kind() != query.KindTerm || first.Field() != query.FieldTenant || first.Values()[0] != tt.tenant {
				t.Errorf("tenant clause = %+v", first)
			}

			var gotAccess []string
			for _, c := range q.Clauses {
				if c.Field() == query.FieldAccess {
					gotAccess = c.Values()
				}
			}
			if !slices.Equal(gotAccess, tt.wantAccess) {
				t.Errorf("access = %v, want %v", gotAccess, tt.wantAccess)
			}
		})
	}
}

func TestService_ListErrors(t *testing.T) {
	svc, repo, _ := newTestService(t, access.FilterNone)
	ctx := context.Background()

	_, err := svc.List(ctx, alice, ListRequest{Filters: map[string]string{"bogus": "1"}})
	if !errors.Is(err, domain.ErrUnacceptableFilterField) {
		t.Errorf("expected ErrUnacceptableFilterField, got %v", err)
	}

	repo.searchErr = domain.ErrStoreUnavailable
	_, err = svc.List(ctx, alice, ListRequest{})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestService_IncludeAccess(t *testing.T) {
	svc, _, _ := newTestService(t, access.FilterRoles)
	if !svc.IncludeAccess(nil) || !svc.IncludeAccess(admin) {
		t.Error("system caller and admins see access lists")
	}
	if svc.IncludeAccess(alice) {
		t.Error("regular users must not see access lists")
	}
}
