package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/object"
)

// Page size defaults.
const (
	DefaultPageSize = 100
	MaxPageSize     = 10000
)

const rangeSeparator = ".."

// Request is a listing request as seen by the builder.
type Request struct {
	Types     []object.Type
	Tenant    string
	Access    []string
	Filters   map[string]string
	SortField string
	SortOrder Order
	From      int
	Size      int
}

// Builder resolves request field names through the type registry.
type Builder struct {
	registry    *object.Registry
	defaultSize int
	maxSize     int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPageSize overrides the default and maximum page sizes.
func WithPageSize(defaultSize, maxSize int) BuilderOption {
	return func(b *Builder) {
		if defaultSize > 0 {
			b.defaultSize = defaultSize
		}
		if maxSize > 0 {
			b.maxSize = maxSize
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(registry *object.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry:    registry,
		defaultSize: DefaultPageSize,
		maxSize:     MaxPageSize,
	}
	for _, o := range opts {
		o(b)
	}
	if b.defaultSize > b.maxSize {
		b.defaultSize = b.maxSize
	}
	return b
}

// Build validates req and produces a Query. Clause order is stable:
// tenant, access, type, then filters by key.
func (b *Builder) Build(req Request) (Query, error) {
	if req.From < 0 {
		return Query{}, fmt.Errorf("negative from %d: %w", req.From, domain.ErrMalformedRequest)
	}
	for _, t := range req.Types {
		if t.IsNone() || !b.registered(t) {
			return Query{}, fmt.Errorf("unknown object type %q: %w", t, domain.ErrMalformedRequest)
		}
	}

	candidates := req.Types
	if len(candidates) == 0 {
		candidates = b.registry.Types()
	}

	clauses := []Clause{Term(FieldTenant, req.Tenant)}
	if len(req.Access) > 0 {
		clauses = append(clauses, Terms(FieldAccess, req.Access...))
	}
	if len(req.Types) > 0 {
		clauses = append(clauses, b.typeClause(req.Types))
	}

	keys := make([]string, 0, len(req.Filters))
	for k := range req.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		c, err := b.filterClause(candidates, key, req.Filters[key])
		if err != nil {
			return Query{}, err
		}
		clauses = append(clauses, c)
	}

	s, err := b.resolveSort(req.Types, req.SortField, req.SortOrder)
	if err != nil {
		return Query{}, err
	}

	size := req.Size
	if size <= 0 {
		size = b.defaultSize
	}
	if size > b.maxSize {
		size = b.maxSize
	}

	return Query{Clauses: clauses, Sort: s, From: req.From, Size: size}, nil
}

func (b *Builder) registered(t object.Type) bool {
	return b.registry.Resolve(t.Tag()) == t
}

func (b *Builder) typeClause(types []object.Type) Clause {
	untagged, hasUntagged := b.registry.Untagged()
	tags := make([]string, 0, len(types))
	includeMissing := false
	for _, t := range types {
		tags = append(tags, t.Tag())
		if hasUntagged && t == untagged {
			includeMissing = true
		}
	}
	return TypeIn(tags, includeMissing)
}

func (b *Builder) filterClause(candidates []object.Type, key, value string) (Clause, error) {
	switch key {
	case FieldQuery:
		fields := b.qualified(candidates, object.FieldText, "")
		if len(fields) == 0 {
			return Clause{}, fmt.Errorf("no text fields for %q: %w", key, domain.ErrUnacceptableFilterField)
		}
		return QueryString(fields, value), nil
	case FieldUpdatedTime, FieldCreatedTime:
		return parseRange(key, value)
	}

	text := b.qualified(candidates, object.FieldText, key)
	keyword := b.qualified(candidates, object.FieldKeyword, key)
	switch {
	case len(text) > 0 && len(keyword) > 0:
		return Clause{}, fmt.Errorf("field %q is text for some types and keyword for others: %w",
			key, domain.ErrUnacceptableFilterField)
	case len(text) > 0:
		tokens := strings.Fields(value)
		if len(tokens) == 0 {
			return Clause{}, fmt.Errorf("empty value for %q: %w", key, domain.ErrMalformedRequest)
		}
		return Match(text, tokens...), nil
	case len(keyword) == 1:
		terms := splitTerms(value)
		if len(terms) == 0 {
			return Clause{}, fmt.Errorf("empty value for %q: %w", key, domain.ErrMalformedRequest)
		}
		return Terms(keyword[0], terms...), nil
	case len(keyword) > 1:
		return Clause{}, fmt.Errorf("keyword field %q is ambiguous across types, select one type: %w",
			key, domain.ErrUnacceptableFilterField)
	default:
		return Clause{}, fmt.Errorf("field %q: %w", key, domain.ErrUnacceptableFilterField)
	}
}

// qualified returns "<tag>.<field>" for every candidate type that declares
// field with the given kind. An empty field selects all fields of that kind.
// A key already qualified with a candidate tag is accepted as is.
func (b *Builder) qualified(candidates []object.Type, kind object.FieldKind, field string) []string {
	var out []string
	for _, t := range candidates {
		name := field
		if tag, rest, ok := strings.Cut(field, "."); ok && tag == t.Tag() {
			name = rest
		}
		if field == "" {
			var all []string
			if kind == object.FieldText {
				all = b.registry.TextFields(t)
			} else {
				all = b.registry.KeywordFields(t)
			}
			for _, f := range all {
				out = append(out, t.Tag()+"."+f)
			}
			continue
		}
		if name != "" && b.registry.FieldKind(t, name) == kind {
			out = append(out, t.Tag()+"."+name)
		}
	}
	return out
}

func (b *Builder) resolveSort(types []object.Type, field string, order Order) (Sort, error) {
	if order == "" {
		order = Asc
	}
	if order != Asc && order != Desc {
		return Sort{}, fmt.Errorf("invalid sort order %q: %w", order, domain.ErrMalformedRequest)
	}
	switch field {
	case "", FieldUpdatedTime:
		return Sort{Field: FieldUpdatedTime, Order: order}, nil
	case FieldCreatedTime:
		return Sort{Field: FieldCreatedTime, Order: order}, nil
	}

	if len(types) != 1 {
		return Sort{}, fmt.Errorf("sort on %q requires exactly one object type: %w", field, domain.ErrUnacceptableSortField)
	}
	t := types[0]
	name := strings.TrimPrefix(field, t.Tag()+".")
	switch b.registry.FieldKind(t, name) {
	case object.FieldKeyword:
		return Sort{Field: t.Tag() + "." + name, Order: order}, nil
	case object.FieldText:
		return Sort{Field: t.Tag() + "." + name + KeywordSuffix, Order: order}, nil
	default:
		return Sort{}, fmt.Errorf("sort field %q: %w", field, domain.ErrUnacceptableSortField)
	}
}

func parseRange(field, value string) (Clause, error) {
	parts := strings.Split(value, rangeSeparator)
	switch len(parts) {
	case 1:
		n, err := parseBound(value)
		if err != nil || n == nil {
			return Clause{}, fmt.Errorf("%s value %q: %w", field, value, domain.ErrInvalidRangeFormat)
		}
		return Numeric(field, *n), nil
	case 2:
		from, err := parseBound(parts[0])
		if err != nil {
			return Clause{}, fmt.Errorf("%s range start %q: %w", field, parts[0], domain.ErrInvalidRangeFormat)
		}
		to, err := parseBound(parts[1])
		if err != nil {
			return Clause{}, fmt.Errorf("%s range end %q: %w", field, parts[1], domain.ErrInvalidRangeFormat)
		}
		r, err := NewRange(from, to)
		if err != nil {
			return Clause{}, fmt.Errorf("%s: %w", field, err)
		}
		return InRange(field, r), nil
	default:
		return Clause{}, fmt.Errorf("%s value %q: %w", field, value, domain.ErrInvalidRangeFormat)
	}
}

// parseBound parses one side of a range. Blank means open.
func parseBound(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by parseRange
	}
	return &n, nil
}

func splitTerms(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
