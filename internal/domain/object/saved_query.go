package object

// SavedQuery is a stored event explorer query.
type SavedQuery struct {
	Name          string        `json:"name,omitempty"`
	Description   string        `json:"description,omitempty"`
	Query         string        `json:"query,omitempty"`
	QueriedFields *TokenList    `json:"queriedFields,omitempty"`
	Filters       *QueryFilters `json:"filters,omitempty"`
}

// QueryFilters groups the time, field and sort filters of a saved query.
type QueryFilters struct {
	TimeFilter  *DateRange   `json:"timeFilter,omitempty"`
	FieldFilter *TokenList   `json:"fieldFilter,omitempty"`
	SortFilters []SortFilter `json:"sortFilters,omitempty"`
}

// SortFilter orders query results by one field.
type SortFilter struct {
	SortField string `json:"sortField"`
	SortOrder string `json:"sortOrder"`
}

// DateRange is a relative or absolute time window with its display text.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// TokenList is a raw selection text split into tokens.
type TokenList struct {
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
}

// ObjectType implements Payload.
func (*SavedQuery) ObjectType() Type { return TypeSavedQuery }

func (q *SavedQuery) normalize() {
	if q == nil {
		return
	}
	q.QueriedFields.normalize()
	if q.Filters != nil {
		q.Filters.FieldFilter.normalize()
		q.Filters.SortFilters = nilIfEmpty(q.Filters.SortFilters)
	}
}

// normalize keeps tokens a JSON array; the schema rejects null.
func (l *TokenList) normalize() {
	if l != nil && l.Tokens == nil {
		l.Tokens = []string{}
	}
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
