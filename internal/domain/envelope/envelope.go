// Package envelope defines the persisted record of an observability object:
// common metadata plus one typed payload stored under its type tag.
package envelope

import (
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/object"
)

// Persisted field names.
const (
	FieldType        = "type"
	FieldUpdatedTime = "lastUpdatedTimeMs"
	FieldCreatedTime = "createdTimeMs"
	FieldTenant      = "tenant"
	FieldAccess      = "access"
)

// Metadata is the part of a document common to every object type.
type Metadata struct {
	UpdatedTime time.Time
	CreatedTime time.Time
	Tenant      string
	Access      []string
}

// NewMetadata validates and creates Metadata. Times are kept at millisecond
// precision in UTC, which is what the store persists.
func NewMetadata(updated, created time.Time, tenant string, grants []string) (Metadata, error) {
	updated = toMillis(updated)
	created = toMillis(created)
	if updated.Before(created) {
		return Metadata{}, fmt.Errorf(
			"updated time %d before created time %d: %w",
			updated.UnixMilli(), created.UnixMilli(), domain.ErrInvariantViolation,
		)
	}
	if tenant == "" {
		tenant = access.DefaultTenant
	}
	if grants == nil {
		grants = []string{}
	}
	return Metadata{
		UpdatedTime: updated,
		CreatedTime: created,
		Tenant:      tenant,
		Access:      slices.Clone(grants),
	}, nil
}

// Doc is the unit of storage: metadata plus the object.
type Doc struct {
	Metadata
	Object object.Object
}

// Clone returns a copy of d whose payload and access list share no memory with d.
func (d Doc) Clone() (Doc, error) {
	obj, err := d.Object.Clone()
	if err != nil {
		return Doc{}, fmt.Errorf("clone doc: %w", err)
	}
	md := d.Metadata
	md.Access = slices.Clone(md.Access)
	return Doc{Metadata: md, Object: obj}, nil
}

// DocInfo carries a Doc with its store-assigned identity and versioning.
type DocInfo struct {
	ID          string
	Version     int64
	SeqNo       int64
	PrimaryTerm int64
	Doc         Doc
}

func toMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
