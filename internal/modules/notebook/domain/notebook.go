package domain

const (
	// NotebookType identifies notebooks handled by this codec.
	NotebookType = "github-graphql-nb"
	// FileExtension is the conventional suffix for persisted notebooks.
	FileExtension = ".github-graphql-nb"
	// Language is the language tag every deserialized cell carries.
	Language = "graphql"
)

const (
	ManagedCellsStart = "<!-- ghnb:cells:start -->"
	ManagedCellsEnd   = "<!-- ghnb:cells:end -->"
)

type CellKind int

const (
	CellKindMarkup CellKind = iota + 1
	CellKindCode
)

func (k CellKind) String() string {
	if k == CellKindMarkup {
		return "markdown"
	}
	return "code"
}

type Cell struct {
	Kind     CellKind
	Content  string
	Language string
}

func NewCodeCell(content string) Cell {
	return Cell{Kind: CellKindCode, Content: content, Language: Language}
}

func NewMarkupCell(content string) Cell {
	return Cell{Kind: CellKindMarkup, Content: content, Language: Language}
}

// Document is an ordered sequence of cells; order is execution order.
type Document struct {
	Cells []Cell
}

func (d Document) CodeCellIndexes() []int {
	out := make([]int, 0, len(d.Cells))
	for i, cell := range d.Cells {
		if cell.Kind == CellKindCode {
			out = append(out, i)
		}
	}
	return out
}
