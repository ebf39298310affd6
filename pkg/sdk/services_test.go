package obstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	healthuc "github.com/kailas-cloud/obstore/internal/usecase/health"
	objectuc "github.com/kailas-cloud/obstore/internal/usecase/object"
)

var testUser = &User{Name: "alice", Tenant: "t1", Roles: []string{"ops"}}

func testInfo(t *testing.T, id, name string) envelope.DocInfo {
	t.Helper()
	obj, err := NewObject(&Notebook{Name: name})
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	created := time.UnixMilli(1_700_000_000_000).UTC()
	md, err := envelope.NewMetadata(created, created, "t1", []string{"User:alice"})
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	return envelope.DocInfo{ID: id, Version: 1, Doc: envelope.Doc{Metadata: md, Object: obj}}
}

func TestNewObject(t *testing.T) {
	obj, err := NewObject(&SavedQuery{Name: "errors"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.Type() != TypeSavedQuery {
		t.Errorf("type = %v, want saved_query", obj.Type())
	}

	if _, err := NewObject(nil); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("nil payload error = %v, want ErrInvariantViolation", err)
	}
}

func TestObjectService_Create(t *testing.T) {
	mock := &mockObjectUC{
		createFn: func(_ context.Context, u *access.User, obj domobj.Object) (string, error) {
			if u != testUser {
				t.Errorf("user = %v, want alice", u)
			}
			if obj.Type() != TypeNotebook {
				t.Errorf("type = %v, want notebook", obj.Type())
			}
			return "abc", nil
		},
	}

	svc := &ObjectService{svc: mock}
	obj, _ := NewObject(&Notebook{Name: "review"})
	id, err := svc.Create(context.Background(), testUser, obj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc" {
		t.Errorf("id = %q, want abc", id)
	}
}

func TestObjectService_Create_Error(t *testing.T) {
	mock := &mockObjectUC{
		createFn: func(_ context.Context, _ *access.User, _ domobj.Object) (string, error) {
			return "", domain.ErrStoreUnavailable
		},
	}

	svc := &ObjectService{svc: mock}
	_, err := svc.Create(context.Background(), nil, Object{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", err)
	}
}

func TestObjectService_Get(t *testing.T) {
	tests := []struct {
		name          string
		includeAccess bool
		wantAccess    int
	}{
		{name: "access hidden", includeAccess: false, wantAccess: 0},
		{name: "access shown", includeAccess: true, wantAccess: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockObjectUC{
				includeAccessFn: func(_ *access.User) bool { return tt.includeAccess },
				getFn: func(_ context.Context, _ *access.User, id string) (envelope.DocInfo, error) {
					return testInfo(t, id, "review"), nil
				},
			}

			svc := &ObjectService{svc: mock}
			got, err := svc.Get(context.Background(), testUser, "abc")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != "abc" || got.Tenant != "t1" || got.Version != 1 {
				t.Errorf("got = %+v", got)
			}
			if got.CreatedTime.UnixMilli() != 1_700_000_000_000 {
				t.Errorf("created = %v", got.CreatedTime)
			}
			if len(got.Access) != tt.wantAccess {
				t.Errorf("access = %v, want %d entries", got.Access, tt.wantAccess)
			}
			nb, ok := got.Object.Payload().(*Notebook)
			if !ok || nb.Name != "review" {
				t.Errorf("payload = %#v, want notebook review", got.Object.Payload())
			}
		})
	}
}

func TestObjectService_Get_NotFound(t *testing.T) {
	mock := &mockObjectUC{
		getFn: func(_ context.Context, _ *access.User, id string) (envelope.DocInfo, error) {
			return envelope.DocInfo{}, domain.NewNotFound(id)
		},
	}

	svc := &ObjectService{svc: mock}
	_, err := svc.Get(context.Background(), testUser, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || len(nf.IDs) != 1 || nf.IDs[0] != "missing" {
		t.Errorf("not found ids = %+v, want [missing]", nf)
	}
}

func TestObjectService_GetMany(t *testing.T) {
	mock := &mockObjectUC{
		getManyFn: func(_ context.Context, _ *access.User, ids []string) ([]envelope.DocInfo, error) {
			out := make([]envelope.DocInfo, len(ids))
			for i, id := range ids {
				out[i] = testInfo(t, id, "nb-"+id)
			}
			return out, nil
		},
	}

	svc := &ObjectService{svc: mock}
	got, err := svc.GetMany(context.Background(), testUser, "b", "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("ids = %+v, want [b a]", got)
	}
}

func TestObjectService_GetMany_Forbidden(t *testing.T) {
	mock := &mockObjectUC{
		getManyFn: func(_ context.Context, _ *access.User, _ []string) ([]envelope.DocInfo, error) {
			return nil, domain.NewForbidden("b")
		},
	}

	svc := &ObjectService{svc: mock}
	_, err := svc.GetMany(context.Background(), testUser, "a", "b")
	var fe *ForbiddenError
	if !errors.As(err, &fe) || fe.ID != "b" {
		t.Errorf("error = %v, want forbidden b", err)
	}
}

func TestObjectService_Update(t *testing.T) {
	var gotID string
	mock := &mockObjectUC{
		updateFn: func(_ context.Context, _ *access.User, id string, _ domobj.Object) error {
			gotID = id
			return nil
		},
	}

	svc := &ObjectService{svc: mock}
	obj, _ := NewObject(&Notebook{Name: "renamed"})
	if err := svc.Update(context.Background(), testUser, "abc", obj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "abc" {
		t.Errorf("id = %q, want abc", gotID)
	}

	mock.updateFn = func(_ context.Context, _ *access.User, _ string, _ domobj.Object) error {
		return domain.ErrUpdateFailed
	}
	if err := svc.Update(context.Background(), testUser, "abc", obj); !errors.Is(err, ErrUpdateFailed) {
		t.Errorf("error = %v, want ErrUpdateFailed", err)
	}
}

func TestObjectService_Delete(t *testing.T) {
	mock := &mockObjectUC{
		deleteFn: func(_ context.Context, _ *access.User, ids []string) (map[string]db.BulkStatus, error) {
			out := make(map[string]db.BulkStatus, len(ids))
			for _, id := range ids {
				out[id] = db.StatusOK
			}
			return out, nil
		},
	}

	svc := &ObjectService{svc: mock}
	got, err := svc.Delete(context.Background(), testUser, "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got["a"] != DeleteOK || got["b"] != DeleteOK {
		t.Errorf("statuses = %v, want both OK", got)
	}
}

func TestObjectService_List(t *testing.T) {
	var gotReq objectuc.ListRequest
	mock := &mockObjectUC{
		listFn: func(_ context.Context, _ *access.User, req objectuc.ListRequest) (objectuc.Page, error) {
			gotReq = req
			return objectuc.Page{
				Start:   req.From,
				Total:   7,
				Objects: []envelope.DocInfo{testInfo(t, "x", "one")},
			}, nil
		},
	}

	svc := &ObjectService{svc: mock}
	page, err := svc.List(context.Background(), testUser, ListOptions{
		Types:     []ObjectType{TypeNotebook},
		Filters:   map[string]string{"name": "one"},
		SortField: "lastUpdatedTimeMs",
		SortOrder: Desc,
		From:      5,
		Size:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Start != 5 || page.Total != 7 || len(page.Objects) != 1 {
		t.Errorf("page = %+v", page)
	}
	if gotReq.SortOrder != Desc || gotReq.Size != 1 || gotReq.Filters["name"] != "one" {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Types) != 1 || gotReq.Types[0] != TypeNotebook {
		t.Errorf("types = %v, want [notebook]", gotReq.Types)
	}
}

func TestObjectService_List_Error(t *testing.T) {
	mock := &mockObjectUC{
		listFn: func(_ context.Context, _ *access.User, _ objectuc.ListRequest) (objectuc.Page, error) {
			return objectuc.Page{}, domain.ErrUnacceptableSortField
		},
	}

	svc := &ObjectService{svc: mock}
	_, err := svc.List(context.Background(), testUser, ListOptions{SortField: "paragraphs"})
	if !errors.Is(err, ErrUnacceptableSort) || !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("error = %v, want ErrUnacceptableSort", err)
	}
}

func TestClient_Health(t *testing.T) {
	tests := []struct {
		name        string
		report      healthuc.Report
		wantState   HealthState
		wantFailing []string
	}{
		{
			name: "all ok",
			report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{
				"database": healthuc.CheckOK, "index": healthuc.CheckOK,
			}},
			wantState: HealthOK,
		},
		{
			name: "index missing",
			report: healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{
				"database": healthuc.CheckOK, "index": healthuc.CheckError,
			}},
			wantState:   HealthDegraded,
			wantFailing: []string{"index"},
		},
		{
			name: "store down",
			report: healthuc.Report{Status: healthuc.Unhealthy, Checks: map[string]healthuc.CheckResult{
				"index": healthuc.CheckError, "database": healthuc.CheckError,
			}},
			wantState:   HealthDown,
			wantFailing: []string{"database", "index"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{healthSvc: &mockHealthUC{report: tt.report}}
			got := c.Health(context.Background())
			if got.State != tt.wantState {
				t.Errorf("state = %q, want %q", got.State, tt.wantState)
			}
			if got.Healthy() != (tt.wantState == HealthOK) {
				t.Errorf("Healthy() = %v for state %q", got.Healthy(), got.State)
			}
			if strings.Join(got.Failing, ",") != strings.Join(tt.wantFailing, ",") {
				t.Errorf("failing = %v, want %v", got.Failing, tt.wantFailing)
			}
		})
	}
}

func TestClient_Objects(t *testing.T) {
	mock := &mockObjectUC{}
	c := &Client{objectSvc: mock}
	if c.Objects().svc != mock {
		t.Error("Objects() should wrap the client's object service")
	}
}
