package dto

type CellOutput struct {
	Index    int
	Kind     string
	Language string
	Content  string
}

type NotebookOutput struct {
	Path  string
	Cells []CellOutput
}

type AppendCellInput struct {
	Path     string
	Markdown bool
	Content  string
}

type SaveInput struct {
	Path  string
	Cells []CellOutput
}

type ExportInput struct {
	Path    string
	OutPath string
}

type ExportOutput struct {
	Path     string
	Cells    int
	Replaced bool
}
