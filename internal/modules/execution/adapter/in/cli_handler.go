package in

import (
	"context"

	"ghnb/internal/modules/execution/dto"
	executionin "ghnb/internal/modules/execution/port/in"
)

type CLIHandler struct {
	usecase executionin.Usecase
}

func NewCLIHandler(usecase executionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Run(ctx context.Context, path string, cells []int, onResult func(dto.CellResult)) (dto.RunOutput, error) {
	return h.usecase.Run(ctx, dto.RunInput{Path: path, Cells: cells, OnResult: onResult})
}

func (h CLIHandler) History(ctx context.Context, path string, limit int) ([]dto.HistoryEntry, error) {
	return h.usecase.History(ctx, dto.HistoryInput{Path: path, Limit: limit})
}

func (h CLIHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) SetScopes(scopes []string) bool {
	return h.usecase.SetScopes(scopes)
}

func (h CLIHandler) Close() error {
	return h.usecase.Close()
}
