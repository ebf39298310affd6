package object

import (
	"errors"
	"fmt"
	"slices"
)

// FieldKind classifies a searchable payload field.
type FieldKind int

const (
	// FieldUnknown is a field the type does not expose for search.
	FieldUnknown FieldKind = iota
	// FieldText is a tokenized field matched by all of its tokens.
	FieldText
	// FieldKeyword is an exact-match field.
	FieldKeyword
)

// Registry maps each object type to its parse, serialize and validate contract.
// It is immutable once built and safe for concurrent use.
type Registry struct {
	entries  map[Type]Entry
	fields   map[Type]map[string]FieldKind
	order    []Type
	untagged Type
}

// NewRegistry builds a registry from entries. Order of entries is kept for Types.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries:  make(map[Type]Entry, len(entries)),
		fields:   make(map[Type]map[string]FieldKind, len(entries)),
		untagged: TypeNone,
	}

	for _, e := range entries {
		if e.Type.IsNone() {
			return nil, errors.New("entry type is required")
		}
		if _, dup := r.entries[e.Type]; dup {
			return nil, fmt.Errorf("duplicate entry for %s", e.Type)
		}
		if e.Parse == nil || e.Serialize == nil || e.Validate == nil {
			return nil, fmt.Errorf("entry %s: parse, serialize and validate are required", e.Type)
		}
		if e.Untagged {
			if r.untagged != TypeNone {
				return nil, fmt.Errorf("entry %s: %s is already the untagged type", e.Type, r.untagged)
			}
			r.untagged = e.Type
		}

		kinds := make(map[string]FieldKind, len(e.TextFields)+len(e.KeywordFields))
		for _, f := range e.TextFields {
			kinds[f] = FieldText
		}
		for _, f := range e.KeywordFields {
			if _, dup := kinds[f]; dup {
				return nil, fmt.Errorf("entry %s: field %q is both text and keyword", e.Type, f)
			}
			kinds[f] = FieldKeyword
		}

		e.TextFields = slices.Clone(e.TextFields)
		e.KeywordFields = slices.Clone(e.KeywordFields)
		r.entries[e.Type] = e
		r.fields[e.Type] = kinds
		r.order = append(r.order, e.Type)
	}

	return r, nil
}

// Default builds the registry of the four built-in object types.
// It panics only if an embedded schema is broken.
func Default() *Registry {
	notebook, err := NewJSONEntry[Notebook](TypeNotebook, []string{"name"}, nil)
	if err != nil {
		panic(err)
	}
	notebook.Untagged = true

	savedQuery, err := NewJSONEntry[SavedQuery](TypeSavedQuery, []string{"name"}, nil)
	if err != nil {
		panic(err)
	}
	savedVis, err := NewJSONEntry[SavedVisualization](
		TypeSavedVisualization, []string{"name"}, []string{"type", "application_id"},
	)
	if err != nil {
		panic(err)
	}
	panel, err := NewJSONEntry[OperationalPanel](TypeOperationalPanel, []string{"name"}, []string{"applicationId"})
	if err != nil {
		panic(err)
	}

	r, err := NewRegistry(notebook, savedQuery, savedVis, panel)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve maps a tag to a registered type. Unknown or unregistered tags yield TypeNone.
func (r *Registry) Resolve(tag string) Type {
	t := Type(tag)
	if _, ok := r.entries[t]; ok {
		return t
	}
	return TypeNone
}

// ParserFor returns the payload parser for t.
func (r *Registry) ParserFor(t Type) (ParseFunc, bool) {
	e, ok := r.entries[t]
	if !ok {
		return nil, false
	}
	return e.Parse, true
}

// SerializerFor returns the payload serializer for t.
func (r *Registry) SerializerFor(t Type) (SerializeFunc, bool) {
	e, ok := r.entries[t]
	if !ok {
		return nil, false
	}
	return e.Serialize, true
}

// Validate reports whether p is the concrete payload of t. TypeNone accepts any payload.
func (r *Registry) Validate(t Type, p Payload) bool {
	if t.IsNone() {
		return true
	}
	e, ok := r.entries[t]
	if !ok {
		return false
	}
	return e.Validate(p)
}

// FieldKind classifies a payload field of t.
func (r *Registry) FieldKind(t Type, field string) FieldKind {
	return r.fields[t][field]
}

// TextFields returns the text fields of t.
func (r *Registry) TextFields(t Type) []string {
	return slices.Clone(r.entries[t].TextFields)
}

// KeywordFields returns the keyword fields of t.
func (r *Registry) KeywordFields(t Type) []string {
	return slices.Clone(r.entries[t].KeywordFields)
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []Type {
	return slices.Clone(r.order)
}

// Untagged returns the type legacy documents hold when they carry no discriminator.
func (r *Registry) Untagged() (Type, bool) {
	return r.untagged, r.untagged != TypeNone
}
