package object

// OperationalPanel lays out saved visualizations on a grid.
type OperationalPanel struct {
	Name           string               `json:"name,omitempty"`
	Visualizations []PanelVisualization `json:"visualizations,omitempty"`
	TimeRange      *PanelTimeRange      `json:"timeRange,omitempty"`
	QueryFilter    *PanelQueryFilter    `json:"queryFilter,omitempty"`
	ApplicationID  string               `json:"applicationId,omitempty"`
}

// PanelVisualization places one saved visualization on the panel grid.
type PanelVisualization struct {
	ID                   string `json:"id"`
	SavedVisualizationID string `json:"savedVisualizationId"`
	X                    int    `json:"x"`
	Y                    int    `json:"y"`
	W                    int    `json:"w"`
	H                    int    `json:"h"`
}

// PanelTimeRange is the panel-wide time window.
type PanelTimeRange struct {
	To   string `json:"to"`
	From string `json:"from"`
}

// PanelQueryFilter is the panel-wide query applied to every visualization.
type PanelQueryFilter struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

// ObjectType implements Payload.
func (*OperationalPanel) ObjectType() Type { return TypeOperationalPanel }

func (p *OperationalPanel) normalize() {
	if p == nil {
		return
	}
	p.Visualizations = nilIfEmpty(p.Visualizations)
}
