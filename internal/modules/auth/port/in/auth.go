package in

import (
	"context"

	"ghnb/internal/modules/auth/dto"
)

type Usecase interface {
	// GetSession reports false when no session exists and CreateIfNone is unset.
	GetSession(ctx context.Context, input dto.GetSessionInput) (dto.SessionOutput, bool, error)
	// Subscribe streams session changes until the returned cancel func runs.
	Subscribe(ctx context.Context) (<-chan dto.ChangeEvent, func())
	Login(ctx context.Context, input dto.LoginInput) (dto.SessionOutput, error)
	Logout(ctx context.Context) (dto.LogoutOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
}
