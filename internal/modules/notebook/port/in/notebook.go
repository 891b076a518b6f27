package in

import (
	"context"

	"ghnb/internal/modules/notebook/dto"
)

type Usecase interface {
	Create(ctx context.Context, path string) (dto.NotebookOutput, error)
	Open(ctx context.Context, path string) (dto.NotebookOutput, error)
	Save(ctx context.Context, input dto.SaveInput) (dto.NotebookOutput, error)
	AppendCell(ctx context.Context, input dto.AppendCellInput) (dto.NotebookOutput, error)
	Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error)
}
