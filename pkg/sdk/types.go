package obstore

import (
	"time"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
)

// User is the identity an operation runs as. A nil *User is the system caller.
type User = access.User

// FilterBy selects which grants restrict visibility within a tenant.
type FilterBy = access.FilterBy

// Visibility filters.
const (
	FilterNone         = access.FilterNone
	FilterUser         = access.FilterUser
	FilterRoles        = access.FilterRoles
	FilterBackendRoles = access.FilterBackendRoles
)

// ObjectType is the discriminator selecting which payload an object holds.
type ObjectType = domobj.Type

// Object types.
const (
	TypeNotebook           = domobj.TypeNotebook
	TypeSavedQuery         = domobj.TypeSavedQuery
	TypeSavedVisualization = domobj.TypeSavedVisualization
	TypeOperationalPanel   = domobj.TypeOperationalPanel
)

// Object pairs a type with its payload.
type Object = domobj.Object

// Payload is the typed body of an object.
type Payload = domobj.Payload

// Payload variants.
type (
	Notebook           = domobj.Notebook
	SavedQuery         = domobj.SavedQuery
	SavedVisualization = domobj.SavedVisualization
	OperationalPanel   = domobj.OperationalPanel
)

// NewObject wraps p in an Object of its own type.
func NewObject(p Payload) (Object, error) {
	if p == nil {
		return domobj.New(domobj.TypeNone, nil)
	}
	return domobj.New(p.ObjectType(), p)
}

// Order is a listing sort direction.
type Order = query.Order

// Sort orders.
const (
	Asc  = query.Asc
	Desc = query.Desc
)

// DeleteStatus is the per-id outcome of a delete.
type DeleteStatus = db.BulkStatus

// Delete outcomes.
const (
	DeleteOK            = db.StatusOK
	DeleteNotFound      = db.StatusNotFound
	DeleteInternalError = db.StatusInternalError
)

// StoredObject is an object with its identity and metadata.
type StoredObject struct {
	ID          string
	Version     int64
	CreatedTime time.Time
	UpdatedTime time.Time
	Tenant      string
	// Access is set only when the caller may see every grant.
	Access []string
	Object Object
}

// ListOptions selects a page of objects.
// Filters keys are logical field names such as "name", "notebook.name",
// "lastUpdatedTimeMs" (exact or "from..to") and "query" for free text.
type ListOptions struct {
	Types     []ObjectType
	Filters   map[string]string
	SortField string
	SortOrder Order
	From      int
	Size      int
}

// Page is one page of a listing.
type Page struct {
	Start   int
	Total   int
	Objects []StoredObject
}
