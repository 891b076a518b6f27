package in

import (
	"context"

	"ghnb/internal/modules/execution/dto"
)

type Usecase interface {
	Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error)
	History(ctx context.Context, input dto.HistoryInput) ([]dto.HistoryEntry, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
	SetScopes(scopes []string) bool
	Close() error
}
