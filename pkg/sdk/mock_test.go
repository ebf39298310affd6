package obstore

import (
	"context"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	healthuc "github.com/kailas-cloud/obstore/internal/usecase/health"
	objectuc "github.com/kailas-cloud/obstore/internal/usecase/object"
)

// --- objectUseCase mock ---

type mockObjectUC struct {
	includeAccessFn func(u *access.User) bool
	createFn        func(ctx context.Context, u *access.User, obj domobj.Object) (string, error)
	getFn           func(ctx context.Context, u *access.User, id string) (envelope.DocInfo, error)
	getManyFn       func(ctx context.Context, u *access.User, ids []string) ([]envelope.DocInfo, error)
	updateFn        func(ctx context.Context, u *access.User, id string, obj domobj.Object) error
	deleteFn        func(ctx context.Context, u *access.User, ids []string) (map[string]db.BulkStatus, error)
	listFn          func(ctx context.Context, u *access.User, req objectuc.ListRequest) (objectuc.Page, error)
}

func (m *mockObjectUC) IncludeAccess(u *access.User) bool {
	if m.includeAccessFn == nil {
		return false
	}
	return m.includeAccessFn(u)
}

func (m *mockObjectUC) Create(ctx context.Context, u *access.User, obj domobj.Object) (string, error) {
	return m.createFn(ctx, u, obj)
}

func (m *mockObjectUC) Get(ctx context.Context, u *access.User, id string) (envelope.DocInfo, error) {
	return m.getFn(ctx, u, id)
}

func (m *mockObjectUC) GetMany(ctx context.Context, u *access.User, ids []string) ([]envelope.DocInfo, error) {
	return m.getManyFn(ctx, u, ids)
}

func (m *mockObjectUC) Update(ctx context.Context, u *access.User, id string, obj domobj.Object) error {
	return m.updateFn(ctx, u, id, obj)
}

func (m *mockObjectUC) Delete(ctx context.Context, u *access.User, ids []string) (map[string]db.BulkStatus, error) {
	return m.deleteFn(ctx, u, ids)
}

func (m *mockObjectUC) List(
	ctx context.Context, u *access.User, req objectuc.ListRequest,
) (objectuc.Page, error) {
	return m.listFn(ctx, u, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- connection mock ---

type mockConn struct {
	pingErr error
	closed  bool
}

func (m *mockConn) Ping(_ context.Context) error { return m.pingErr }

func (m *mockConn) Close() { m.closed = true }
