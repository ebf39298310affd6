package chi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/obstore/internal/domain"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
	objectuc "github.com/kailas-cloud/obstore/internal/usecase/object"
)

// Query parameters with a fixed meaning. Every other parameter is a filter.
const (
	paramObjectIDList = "objectIdList"
	paramIDList       = "idList"
	paramObjectType   = "objectType"
	paramType         = "type"
	paramSortField    = "sortField"
	paramSortOrder    = "sortOrder"
	paramFromIndex    = "fromIndex"
	paramMaxItems     = "maxItems"
)

var reservedParams = map[string]struct{}{
	paramObjectIDList: {},
	paramIDList:       {},
	paramObjectType:   {},
	paramType:         {},
	paramSortField:    {},
	paramSortOrder:    {},
	paramFromIndex:    {},
	paramMaxItems:     {},
}

// ListParams are the bound query parameters of GET /object.
type ListParams struct {
	IDs       []string
	Types     []string
	SortField *string
	SortOrder *string
	FromIndex *int
	MaxItems  *int
	Filters   map[string]string
}

func bindObjectID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "objectId", chi.URLParam(r, "objectId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", fmt.Errorf("invalid objectId: %w: %w", err, domain.ErrMalformedRequest)
	}
	if id == "" {
		return "", fmt.Errorf("objectId is required: %w", domain.ErrMalformedRequest)
	}
	return id, nil
}

// bindIDList reads objectIdList, falling back to its idList alias.
func bindIDList(q url.Values) ([]string, error) {
	var ids []string
	for _, name := range []string{paramObjectIDList, paramIDList} {
		if !q.Has(name) {
			continue
		}
		if err := runtime.BindQueryParameter("form", false, false, name, q, &ids); err != nil {
			return nil, fmt.Errorf("invalid %s: %w: %w", name, err, domain.ErrMalformedRequest)
		}
		break
	}
	return compact(ids), nil
}

func bindListParams(r *http.Request) (ListParams, error) {
	q := r.URL.Query()
	var p ListParams

	ids, err := bindIDList(q)
	if err != nil {
		return ListParams{}, err
	}
	p.IDs = ids

	for _, name := range []string{paramObjectType, paramType} {
		if !q.Has(name) {
			continue
		}
		if err := runtime.BindQueryParameter("form", false, false, name, q, &p.Types); err != nil {
			return ListParams{}, fmt.Errorf("invalid %s: %w: %w", name, err, domain.ErrMalformedRequest)
		}
		break
	}
	p.Types = compact(p.Types)

	bindings := []struct {
		name string
		dest any
	}{
		{paramSortField, &p.SortField},
		{paramSortOrder, &p.SortOrder},
		{paramFromIndex, &p.FromIndex},
		{paramMaxItems, &p.MaxItems},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return ListParams{}, fmt.Errorf("invalid %s: %w: %w", b.name, err, domain.ErrMalformedRequest)
		}
	}

	for key, values := range q {
		if _, ok := reservedParams[key]; ok || len(values) == 0 {
			continue
		}
		if p.Filters == nil {
			p.Filters = make(map[string]string)
		}
		p.Filters[key] = values[0]
	}
	return p, nil
}

func (p ListParams) toRequest(registry *domobj.Registry) (objectuc.ListRequest, error) {
	req := objectuc.ListRequest{Filters: p.Filters}

	for _, tag := range p.Types {
		t := registry.Resolve(tag)
		if t.IsNone() {
			return objectuc.ListRequest{}, fmt.Errorf("unknown object type %q: %w", tag, domain.ErrMalformedRequest)
		}
		req.Types = append(req.Types, t)
	}

	if p.SortField != nil {
		req.SortField = *p.SortField
	}
	if p.SortOrder != nil {
		order, err := query.ParseOrder(*p.SortOrder)
		if err != nil {
			return objectuc.ListRequest{}, fmt.Errorf("sortOrder: %w", err)
		}
		req.SortOrder = order
	}
	if p.FromIndex != nil {
		req.From = *p.FromIndex
	}
	if p.MaxItems != nil {
		req.Size = *p.MaxItems
	}
	return req, nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
