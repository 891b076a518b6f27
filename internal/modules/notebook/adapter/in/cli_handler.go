package in

import (
	"context"

	"ghnb/internal/modules/notebook/dto"
	notebookin "ghnb/internal/modules/notebook/port/in"
)

type CLIHandler struct {
	usecase notebookin.Usecase
}

func NewCLIHandler(usecase notebookin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Create(ctx context.Context, path string) (dto.NotebookOutput, error) {
	return h.usecase.Create(ctx, path)
}

func (h CLIHandler) Open(ctx context.Context, path string) (dto.NotebookOutput, error) {
	return h.usecase.Open(ctx, path)
}

func (h CLIHandler) AppendCell(ctx context.Context, path string, markdown bool, content string) (dto.NotebookOutput, error) {
	return h.usecase.AppendCell(ctx, dto.AppendCellInput{Path: path, Markdown: markdown, Content: content})
}

func (h CLIHandler) Save(ctx context.Context, path string, cells []dto.CellOutput) (dto.NotebookOutput, error) {
	return h.usecase.Save(ctx, dto.SaveInput{Path: path, Cells: cells})
}

func (h CLIHandler) Export(ctx context.Context, path, outPath string) (dto.ExportOutput, error) {
	return h.usecase.Export(ctx, dto.ExportInput{Path: path, OutPath: outPath})
}
