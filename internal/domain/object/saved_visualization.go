package object

// SavedVisualization is a query rendered as a chart.
type SavedVisualization struct {
	Name              string     `json:"name,omitempty"`
	Description       string     `json:"description,omitempty"`
	Query             string     `json:"query,omitempty"`
	Type              string     `json:"type,omitempty"`
	SelectedDateRange *DateRange `json:"selected_date_range,omitempty"`
	SelectedFields    *TokenList `json:"selected_fields,omitempty"`
	ApplicationID     string     `json:"application_id,omitempty"`
}

// ObjectType implements Payload.
func (*SavedVisualization) ObjectType() Type { return TypeSavedVisualization }

func (v *SavedVisualization) normalize() {
	if v == nil {
		return
	}
	v.SelectedFields.normalize()
}
