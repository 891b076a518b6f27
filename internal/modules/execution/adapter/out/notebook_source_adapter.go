package out

import (
	"context"

	"ghnb/internal/modules/execution/domain"
	executionout "ghnb/internal/modules/execution/port/out"
	notebookin "ghnb/internal/modules/notebook/port/in"
)

const codeKind = "code"

type NotebookSourceAdapter struct {
	notebooks notebookin.Usecase
}

func NewNotebookSourceAdapter(notebooks notebookin.Usecase) executionout.NotebookSource {
	return &NotebookSourceAdapter{notebooks: notebooks}
}

func (a *NotebookSourceAdapter) CodeCells(ctx context.Context, path string) ([]domain.Cell, error) {
	notebook, err := a.notebooks.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	cells := make([]domain.Cell, 0, len(notebook.Cells))
	for _, cell := range notebook.Cells {
		if cell.Kind != codeKind {
			continue
		}
		cells = append(cells, domain.Cell{Index: cell.Index, Content: cell.Content})
	}
	return cells, nil
}
