// Package query turns a listing request into a store-agnostic structured query.
package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/obstore/internal/domain"
)

// Logical field names used in clauses. Payload fields are qualified by their
// type tag, e.g. "notebook.name"; text fields sort on "<tag>.<field>.keyword".
const (
	FieldType   = "type"
	FieldTenant = "tenant"
	FieldAccess = "access"

	FieldUpdatedTime = "lastUpdatedTimeMs"
	FieldCreatedTime = "createdTimeMs"

	// FieldQuery is the free-text filter key.
	FieldQuery = "query"

	// KeywordSuffix names the exact-value sub-field of a text field.
	KeywordSuffix = ".keyword"
)

// Kind identifies a clause variant.
type Kind int

// Clause kinds.
const (
	KindTerm Kind = iota + 1
	KindTerms
	KindNumeric
	KindRange
	KindMatch
	KindQueryString
	KindType
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "term"
	case KindTerms:
		return "terms"
	case KindNumeric:
		return "numeric"
	case KindRange:
		return "range"
	case KindMatch:
		return "match"
	case KindQueryString:
		return "query_string"
	case KindType:
		return "type"
	default:
		return "unknown"
	}
}

// Clause is one conjunct of a Query.
type Clause struct {
	kind           Kind
	fields         []string
	values         []string
	number         int64
	rng            Range
	includeMissing bool
}

// Kind returns the clause variant.
func (c Clause) Kind() Kind { return c.kind }

// Field returns the first field of the clause.
func (c Clause) Field() string {
	if len(c.fields) == 0 {
		return ""
	}
	return c.fields[0]
}

// Fields returns every field the clause applies to. Match and query string
// clauses may span several type-qualified fields.
func (c Clause) Fields() []string { return c.fields }

// Values returns the tag values or text tokens of the clause.
func (c Clause) Values() []string { return c.values }

// Number returns the exact value of a numeric clause.
func (c Clause) Number() int64 { return c.number }

// Range returns the bounds of a range clause.
func (c Clause) Range() Range { return c.rng }

// IncludeMissing reports whether a type clause also matches documents without
// a type discriminator.
func (c Clause) IncludeMissing() bool { return c.includeMissing }

// Term matches a tag field exactly.
func Term(field, value string) Clause {
	return Clause{kind: KindTerm, fields: []string{field}, values: []string{value}}
}

// Terms matches a tag field against any of values.
func Terms(field string, values ...string) Clause {
	return Clause{kind: KindTerms, fields: []string{field}, values: values}
}

// Numeric matches a numeric field exactly.
func Numeric(field string, v int64) Clause {
	return Clause{kind: KindNumeric, fields: []string{field}, number: v}
}

// InRange matches a numeric field within r, bounds inclusive.
func InRange(field string, r Range) Clause {
	return Clause{kind: KindRange, fields: []string{field}, rng: r}
}

// Match requires every token to match in any of fields.
func Match(fields []string, tokens ...string) Clause {
	return Clause{kind: KindMatch, fields: fields, values: tokens}
}

// QueryString runs free text across fields.
func QueryString(fields []string, text string) Clause {
	return Clause{kind: KindQueryString, fields: fields, values: []string{text}}
}

// TypeIn restricts documents to tags. includeMissing also admits documents
// stored before the type discriminator existed.
func TypeIn(tags []string, includeMissing bool) Clause {
	return Clause{kind: KindType, fields: []string{FieldType}, values: tags, includeMissing: includeMissing}
}

// Range is an inclusive numeric interval. A nil bound is open.
type Range struct {
	from *int64
	to   *int64
}

// NewRange creates a Range. At least one bound is required and from must not exceed to.
func NewRange(from, to *int64) (Range, error) {
	if from == nil && to == nil {
		return Range{}, fmt.Errorf("at least one range bound is required: %w", domain.ErrInvalidRangeFormat)
	}
	if from != nil && to != nil && *from > *to {
		return Range{}, fmt.Errorf("range start %d after end %d: %w", *from, *to, domain.ErrInvalidRangeFormat)
	}
	return Range{from: from, to: to}, nil
}

// From returns the lower bound, nil when open.
func (r Range) From() *int64 { return r.from }

// To returns the upper bound, nil when open.
func (r Range) To() *int64 { return r.to }

// Order is a sort direction.
type Order string

// Sort orders.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder parses a sort order. Empty means ascending.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(s)) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("invalid sort order %q: %w", s, domain.ErrMalformedRequest)
	}
}

// Sort is the resolved sort key of a Query.
type Sort struct {
	Field string
	Order Order
}

// Query is a conjunction of clauses with sort and pagination.
type Query struct {
	Clauses []Clause
	Sort    Sort
	From    int
	Size    int
}
