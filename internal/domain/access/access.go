// Package access resolves tenants and access grants for a calling user.
//
// A nil *User is the system caller: it is unrestricted and carries no grants.
package access

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/obstore/internal/domain"
)

// DefaultTenant is the shared tenant of callers and documents without one.
const DefaultTenant = "__default__"

// Grant prefixes of access strings.
const (
	UserPrefix        = "User:"
	RolePrefix        = "Role:"
	BackendRolePrefix = "BERole:"
)

// FilterBy selects which grants restrict visibility within a tenant.
type FilterBy string

const (
	// FilterNone shows every object of the tenant.
	FilterNone FilterBy = "none"
	// FilterUser restricts to objects the user created.
	FilterUser FilterBy = "user"
	// FilterRoles restricts to objects sharing a role with the user.
	FilterRoles FilterBy = "roles"
	// FilterBackendRoles restricts to objects sharing a backend role with the user.
	FilterBackendRoles FilterBy = "backend_roles"
)

// IsValid checks if the filter mode is supported.
func (f FilterBy) IsValid() bool {
	switch f {
	case FilterNone, FilterUser, FilterRoles, FilterBackendRoles:
		return true
	}
	return false
}

// User is the identity an operation runs as.
type User struct {
	Name         string
	Tenant       string
	Roles        []string
	BackendRoles []string
}

// Policy decides tenant and grant checks.
type Policy struct {
	filterBy      FilterBy
	adminRoles    []string
	adminViewsAll bool
}

// NewPolicy creates a Policy. adminRoles see every object of their tenant
// when adminViewsAll is set.
func NewPolicy(filterBy FilterBy, adminRoles []string, adminViewsAll bool) (Policy, error) {
	if filterBy == "" {
		filterBy = FilterNone
	}
	if !filterBy.IsValid() {
		return Policy{}, fmt.Errorf("unknown filter_by %q", filterBy)
	}
	return Policy{
		filterBy:      filterBy,
		adminRoles:    slices.Clone(adminRoles),
		adminViewsAll: adminViewsAll,
	}, nil
}

// DefaultPolicy does no filtering within a tenant.
func DefaultPolicy() Policy {
	return Policy{filterBy: FilterNone, adminRoles: []string{"all_access"}, adminViewsAll: true}
}

// FilterBy returns the configured filter mode.
func (p Policy) FilterBy() FilterBy { return p.filterBy }

// Tenant returns the tenant u operates in.
func (p Policy) Tenant(u *User) string {
	if u == nil || u.Tenant == "" {
		return DefaultTenant
	}
	return u.Tenant
}

// Validate rejects users that can never pass the configured filter.
func (p Policy) Validate(u *User) error {
	if u == nil || p.isAdmin(u) {
		return nil
	}
	if p.filterBy == FilterBackendRoles && len(u.BackendRoles) == 0 {
		return fmt.Errorf("user %s has no backend roles: %w", u.Name, domain.ErrForbidden)
	}
	return nil
}

// AllAccessInfo returns every grant u holds; it is stamped on objects u writes.
func (p Policy) AllAccessInfo(u *User) []string {
	if u == nil {
		return []string{}
	}
	out := make([]string, 0, 1+len(u.BackendRoles)+len(u.Roles))
	if u.Name != "" {
		out = append(out, UserPrefix+u.Name)
	}
	for _, r := range u.BackendRoles {
		out = append(out, BackendRolePrefix+r)
	}
	for _, r := range u.Roles {
		out = append(out, RolePrefix+r)
	}
	return out
}

// SearchAccessInfo returns the grants a listing filters on.
// An empty result means no access filtering within the tenant.
func (p Policy) SearchAccessInfo(u *User) []string {
	if u == nil || p.isAdmin(u) {
		return []string{}
	}
	switch p.filterBy {
	case FilterUser:
		return []string{UserPrefix + u.Name}
	case FilterRoles:
		return prefixed(RolePrefix, u.Roles)
	case FilterBackendRoles:
		return prefixed(BackendRolePrefix, u.BackendRoles)
	default:
		return []string{}
	}
}

// HasAccess reports whether u may read or change an object of tenant with grants docAccess.
func (p Policy) HasAccess(u *User, tenant string, docAccess []string) bool {
	if u == nil {
		return true
	}
	if p.Tenant(u) != tenant {
		return false
	}
	if p.isAdmin(u) {
		return true
	}
	switch p.filterBy {
	case FilterUser:
		return slices.Contains(docAccess, UserPrefix+u.Name)
	case FilterRoles:
		return intersects(prefixed(RolePrefix, u.Roles), docAccess)
	case FilterBackendRoles:
		return intersects(prefixed(BackendRolePrefix, u.BackendRoles), docAccess)
	default:
		return true
	}
}

// HasAllInfoAccess reports whether u may see the access list of objects.
func (p Policy) HasAllInfoAccess(u *User) bool {
	return u == nil || p.isAdmin(u)
}

func (p Policy) isAdmin(u *User) bool {
	if !p.adminViewsAll {
		return false
	}
	for _, r := range u.Roles {
		if slices.Contains(p.adminRoles, r) {
			return true
		}
	}
	return false
}

func prefixed(prefix string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
