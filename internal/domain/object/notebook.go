package object

// Notebook is an ordered list of paragraphs with a backend marker.
type Notebook struct {
	Name         string      `json:"name,omitempty"`
	DateCreated  string      `json:"dateCreated,omitempty"`
	DateModified string      `json:"dateModified,omitempty"`
	Backend      string      `json:"backend,omitempty"`
	Paragraphs   []Paragraph `json:"paragraphs,omitempty"`
}

// Paragraph is a single notebook cell.
type Paragraph struct {
	ID           string            `json:"id"`
	DateCreated  string            `json:"dateCreated,omitempty"`
	DateModified string            `json:"dateModified,omitempty"`
	Input        ParagraphInput    `json:"input"`
	Output       []ParagraphOutput `json:"output,omitempty"`
}

// ParagraphInput is the source of a paragraph.
type ParagraphInput struct {
	InputType string `json:"inputType"`
	InputText string `json:"inputText"`
}

// ParagraphOutput is one rendered result of a paragraph.
type ParagraphOutput struct {
	OutputType    string `json:"outputType"`
	Result        string `json:"result"`
	ExecutionTime string `json:"execution_time"`
}

// ObjectType implements Payload.
func (*Notebook) ObjectType() Type { return TypeNotebook }

func (n *Notebook) normalize() {
	if n == nil {
		return
	}
	n.Paragraphs = nilIfEmpty(n.Paragraphs)
	for i := range n.Paragraphs {
		n.Paragraphs[i].Output = nilIfEmpty(n.Paragraphs[i].Output)
	}
}
