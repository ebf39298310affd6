package object

// Type is the discriminator selecting which payload shape an object holds.
type Type string

const (
	// TypeNotebook holds a notebook with its paragraphs.
	TypeNotebook Type = "notebook"
	// TypeSavedQuery holds an event explorer query with its filters.
	TypeSavedQuery Type = "saved_query"
	// TypeSavedVisualization holds a visualization built from a query.
	TypeSavedVisualization Type = "saved_visualization"
	// TypeOperationalPanel holds a panel of saved visualizations.
	TypeOperationalPanel Type = "operational_panel"
	// TypeNone is the sentinel for an unrecognized tag.
	TypeNone Type = "none"
)

var knownTypes = map[string]Type{
	string(TypeNotebook):           TypeNotebook,
	string(TypeSavedQuery):         TypeSavedQuery,
	string(TypeSavedVisualization): TypeSavedVisualization,
	string(TypeOperationalPanel):   TypeOperationalPanel,
}

// ParseType maps a tag to its Type. Unknown tags yield TypeNone.
func ParseType(tag string) Type {
	if t, ok := knownTypes[tag]; ok {
		return t
	}
	return TypeNone
}

// Tag returns the persisted tag, which is also the payload key in a stored document.
func (t Type) Tag() string { return string(t) }

func (t Type) String() string { return string(t) }

// IsNone reports whether t is the unrecognized sentinel.
func (t Type) IsNone() bool { return t == TypeNone || t == "" }
