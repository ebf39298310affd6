package object

import (
	"github.com/kailas-cloud/obstore/internal/db"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
)

// Index names.
const (
	DefaultIndex       = "observability"
	DefaultLegacyIndex = "notebooks"
)

// buildIndex derives the JSON index schema from the registry: metadata
// fields plus, for every registered type, its text and keyword fields.
// Text fields are indexed twice, tokenized and as an exact sortable TAG.
func buildIndex(name string, registry *domobj.Registry) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).
		OnJSON().
		Tag(jsonPath(query.FieldType), db.As(query.FieldType), db.IndexMissing()).
		Tag(jsonPath(query.FieldTenant), db.As(query.FieldTenant), db.CaseSensitive()).
		Tag(jsonPath(query.FieldAccess)+"[*]", db.As(query.FieldAccess), db.CaseSensitive()).
		Numeric(jsonPath(query.FieldUpdatedTime), db.As(query.FieldUpdatedTime), db.Sortable()).
		Numeric(jsonPath(query.FieldCreatedTime), db.As(query.FieldCreatedTime), db.Sortable())

	for _, t := range registry.Types() {
		for _, f := range registry.TextFields(t) {
			field := t.Tag() + "." + f
			b.Text(jsonPath(field), db.As(db.FieldAlias(field)))
			b.Tag(jsonPath(field),
				db.As(db.FieldAlias(field+query.KeywordSuffix)), db.CaseSensitive(), db.Sortable())
		}
		for _, f := range registry.KeywordFields(t) {
			field := t.Tag() + "." + f
			b.Tag(jsonPath(field), db.As(db.FieldAlias(field)), db.CaseSensitive(), db.Sortable())
		}
	}

	return b.Build()
}

func jsonPath(field string) string {
	return "$." + field
}
