package in

import (
	"context"

	authdto "ghnb/internal/modules/auth/dto"
	authin "ghnb/internal/modules/auth/port/in"
)

type CLIHandler struct {
	usecase authin.Usecase
}

func NewCLIHandler(usecase authin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Login(ctx context.Context, scopes []string) (authdto.SessionOutput, error) {
	return h.usecase.Login(ctx, authdto.LoginInput{Scopes: scopes})
}

func (h CLIHandler) Logout(ctx context.Context) (authdto.LogoutOutput, error) {
	return h.usecase.Logout(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (authdto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}
