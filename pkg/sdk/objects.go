package obstore

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	objectuc "github.com/kailas-cloud/obstore/internal/usecase/object"
)

// ObjectService manages observability objects on behalf of a user.
// Every method accepts a nil user, which runs as the system caller.
type ObjectService struct {
	svc objectUseCase
	ins *instruments
}

// Create stores obj owned by u and returns its id.
func (s *ObjectService) Create(ctx context.Context, u *User, obj Object) (id string, err error) {
	defer s.ins.track("create")(&err)

	id, err = s.svc.Create(ctx, u, obj)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	return id, nil
}

// Get returns the object with id if u may see it.
func (s *ObjectService) Get(ctx context.Context, u *User, id string) (_ StoredObject, err error) {
	defer s.ins.track("get")(&err)

	info, err := s.svc.Get(ctx, u, id)
	if err != nil {
		return StoredObject{}, fmt.Errorf("get object: %w", err)
	}
	return toStoredObject(info, s.svc.IncludeAccess(u)), nil
}

// GetMany returns the objects with ids in the order given. It fails with
// ErrNotFound listing every missing id, or ErrForbidden for the first id u
// may not see.
func (s *ObjectService) GetMany(ctx context.Context, u *User, ids ...string) (_ []StoredObject, err error) {
	defer s.ins.track("get_many")(&err)

	infos, err := s.svc.GetMany(ctx, u, ids)
	if err != nil {
		return nil, fmt.Errorf("get objects: %w", err)
	}
	return toStoredObjects(infos, s.svc.IncludeAccess(u)), nil
}

// Update replaces the payload of the object with id.
func (s *ObjectService) Update(ctx context.Context, u *User, id string, obj Object) (err error) {
	defer s.ins.track("update")(&err)

	if err = s.svc.Update(ctx, u, id, obj); err != nil {
		return fmt.Errorf("update object: %w", err)
	}
	return nil
}

// Delete removes the objects with ids. Either every id is deleted or none is.
func (s *ObjectService) Delete(ctx context.Context, u *User, ids ...string) (_ map[string]DeleteStatus, err error) {
	defer s.ins.track("delete")(&err)

	statuses, err := s.svc.Delete(ctx, u, ids)
	if err != nil {
		return nil, fmt.Errorf("delete objects: %w", err)
	}
	return statuses, nil
}

// List returns a page of the objects u may see.
func (s *ObjectService) List(ctx context.Context, u *User, opts ListOptions) (_ Page, err error) {
	defer s.ins.track("list")(&err)

	page, err := s.svc.List(ctx, u, objectuc.ListRequest{
		Types:     opts.Types,
		Filters:   opts.Filters,
		SortField: opts.SortField,
		SortOrder: opts.SortOrder,
		From:      opts.From,
		Size:      opts.Size,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list objects: %w", err)
	}
	return Page{
		Start:   page.Start,
		Total:   page.Total,
		Objects: toStoredObjects(page.Objects, s.svc.IncludeAccess(u)),
	}, nil
}

func toStoredObjects(infos []envelope.DocInfo, includeAccess bool) []StoredObject {
	out := make([]StoredObject, len(infos))
	for i, info := range infos {
		out[i] = toStoredObject(info, includeAccess)
	}
	return out
}

func toStoredObject(info envelope.DocInfo, includeAccess bool) StoredObject {
	md := info.Doc.Metadata
	o := StoredObject{
		ID:          info.ID,
		Version:     info.Version,
		CreatedTime: md.CreatedTime,
		UpdatedTime: md.UpdatedTime,
		Tenant:      md.Tenant,
		Object:      info.Doc.Object,
	}
	if includeAccess {
		o.Access = md.Access
	}
	return o
}
