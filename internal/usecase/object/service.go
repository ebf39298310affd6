package object

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
	"github.com/kailas-cloud/obstore/internal/logger"
)

// ListRequest selects a page of objects visible to the caller.
type ListRequest struct {
	Types     []domobj.Type
	Filters   map[string]string
	SortField string
	SortOrder query.Order
	From      int
	Size      int
}

// Page is one page of a listing.
type Page struct {
	Start   int
	Total   int
	Objects []envelope.DocInfo
}

// Service enforces tenant isolation and access grants around the repository.
// Lookups by id always report a missing object before a forbidden one.
type Service struct {
	repo    Repository
	builder QueryBuilder
	policy  access.Policy
	clock   clock.Clock
}

// New creates an object service.
func New(repo Repository, builder QueryBuilder, policy access.Policy) *Service {
	return &Service{
		repo:    repo,
		builder: builder,
		policy:  policy,
		clock:   clock.New(),
	}
}

// WithClock replaces the wall clock used for timestamps.
func (s *Service) WithClock(c clock.Clock) *Service {
	if c != nil {
		s.clock = c
	}
	return s
}

// IncludeAccess reports whether responses to u may carry the access lists of objects.
func (s *Service) IncludeAccess(u *access.User) bool {
	return s.policy.HasAllInfoAccess(u)
}

// Create stores obj owned by u and returns its id.
func (s *Service) Create(ctx context.Context, u *access.User, obj domobj.Object) (string, error) {
	if obj.IsZero() {
		return "", fmt.Errorf("object payload is required: %w", domain.ErrMalformedRequest)
	}
	if err := s.policy.Validate(u); err != nil {
		return "", err //nolint:wrapcheck // domain error from policy
	}

	now := s.now()
	meta, err := envelope.NewMetadata(now, now, s.policy.Tenant(u), s.policy.AllAccessInfo(u))
	if err != nil {
		return "", fmt.Errorf("metadata: %w", err)
	}

	id, err := s.repo.Create(ctx, envelope.Doc{Metadata: meta, Object: obj})
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	logger.FromContext(ctx).Debug("object created",
		zap.String("id", id),
		zap.String("type", obj.Type().Tag()),
		zap.String("tenant", meta.Tenant),
	)
	return id, nil
}

// Get returns the object with id if u may see it.
func (s *Service) Get(ctx context.Context, u *access.User, id string) (envelope.DocInfo, error) {
	info, err := s.repo.Get(ctx, id)
	if err != nil {
		return envelope.DocInfo{}, fmt.Errorf("get object: %w", err)
	}
	if err := s.authorize(u, info); err != nil {
		return envelope.DocInfo{}, err
	}
	return info, nil
}

// GetMany returns the objects with ids. It fails listing every missing id,
// or the first id u may not see.
func (s *Service) GetMany(ctx context.Context, u *access.User, ids []string) ([]envelope.DocInfo, error) {
	infos, err := s.fetchAll(ctx, u, ids)
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Update replaces the payload of id. The creation time is kept; tenant and
// grants are re-stamped from u.
func (s *Service) Update(ctx context.Context, u *access.User, id string, obj domobj.Object) error {
	if obj.IsZero() {
		return fmt.Errorf("object payload is required: %w", domain.ErrMalformedRequest)
	}

	current, err := s.Get(ctx, u, id)
	if err != nil {
		return err
	}

	created := current.Doc.CreatedTime
	updated := s.now()
	if updated.Before(created) {
		updated = created
	}

	tenant, grants := current.Doc.Tenant, current.Doc.Access
	if u != nil {
		tenant, grants = s.policy.Tenant(u), s.policy.AllAccessInfo(u)
	}

	meta, err := envelope.NewMetadata(updated, created, tenant, grants)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if err := s.repo.Update(ctx, id, envelope.Doc{Metadata: meta, Object: obj}); err != nil {
		return fmt.Errorf("update object: %w", err)
	}
	return nil
}

// Delete removes ids. Authorization is all-or-nothing: nothing is deleted
// unless every id exists and u may change it. Once authorized, each id
// reports its own outcome.
func (s *Service) Delete(ctx context.Context, u *access.User, ids []string) (map[string]db.BulkStatus, error) {
	ids = dedupe(ids)
	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("at least one object id is required: %w", domain.ErrMalformedRequest)
	case 1:
		if _, err := s.Get(ctx, u, ids[0]); err != nil {
			return nil, err
		}
		if err := s.repo.Delete(ctx, ids[0]); err != nil {
			return nil, fmt.Errorf("delete object: %w", err)
		}
		return map[string]db.BulkStatus{ids[0]: db.StatusOK}, nil
	}

	if _, err := s.fetchAll(ctx, u, ids); err != nil {
		return nil, err
	}
	statuses, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("bulk delete objects: %w", err)
	}
	return statuses, nil
}

// List returns one page of the objects u may see, filtered by req.
func (s *Service) List(ctx context.Context, u *access.User, req ListRequest) (Page, error) {
	q, err := s.builder.Build(query.Request{
		Types:     req.Types,
		Tenant:    s.policy.Tenant(u),
		Access:    s.policy.SearchAccessInfo(u),
		Filters:   req.Filters,
		SortField: req.SortField,
		SortOrder: req.SortOrder,
		From:      req.From,
		Size:      req.Size,
	})
	if err != nil {
		return Page{}, fmt.Errorf("build query: %w", err)
	}

	total, hits, err := s.repo.Search(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("search objects: %w", err)
	}
	return Page{Start: q.From, Total: total, Objects: hits}, nil
}

// fetchAll loads every id, failing on missing or forbidden ones before
// anything else happens. Results follow the order of ids.
func (s *Service) fetchAll(ctx context.Context, u *access.User, ids []string) ([]envelope.DocInfo, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one object id is required: %w", domain.ErrMalformedRequest)
	}

	found, err := s.repo.MultiGet(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get objects: %w", err)
	}

	byID := make(map[string]envelope.DocInfo, len(found))
	for _, info := range found {
		byID[info.ID] = info
	}

	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewNotFound(missing...)
	}

	out := make([]envelope.DocInfo, 0, len(ids))
	for _, id := range ids {
		info := byID[id]
		if err := s.authorize(u, info); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Service) authorize(u *access.User, info envelope.DocInfo) error {
	if !s.policy.HasAccess(u, info.Doc.Tenant, info.Doc.Access) {
		return domain.NewForbidden(info.ID)
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
