package usecase

import (
	"context"
	"sync"

	"ghnb/internal/modules/auth/domain"
	authdto "ghnb/internal/modules/auth/dto"
	authin "ghnb/internal/modules/auth/port/in"
	"ghnb/internal/modules/auth/service"
)

type Interactor struct {
	svc *service.AuthService
}

func NewInteractor(svc *service.AuthService) authin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) GetSession(ctx context.Context, input authdto.GetSessionInput) (authdto.SessionOutput, bool, error) {
	session, ok, err := i.svc.GetSession(ctx, input.Scopes, input.CreateIfNone)
	if err != nil || !ok {
		return authdto.SessionOutput{}, ok, err
	}
	return toSessionOutput(session), true, nil
}

func (i *Interactor) Subscribe(ctx context.Context) (<-chan authdto.ChangeEvent, func()) {
	events, cancel := i.svc.Subscribe()
	out := make(chan authdto.ChangeEvent, cap(events))
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			cancel()
		})
	}
	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- authdto.ChangeEvent{ProviderID: event.ProviderID, Reason: string(event.Reason)}:
				case <-done:
					return
				case <-ctx.Done():
					stop()
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				stop()
				return
			}
		}
	}()
	return out, stop
}

func (i *Interactor) Login(ctx context.Context, input authdto.LoginInput) (authdto.SessionOutput, error) {
	session, err := i.svc.Login(ctx, input.Scopes)
	if err != nil {
		return authdto.SessionOutput{}, err
	}
	return toSessionOutput(session), nil
}

func (i *Interactor) Logout(ctx context.Context) (authdto.LogoutOutput, error) {
	removed, err := i.svc.Logout(ctx)
	if err != nil {
		return authdto.LogoutOutput{}, err
	}
	return authdto.LogoutOutput{Removed: removed}, nil
}

func (i *Interactor) Status(ctx context.Context) (authdto.StatusOutput, error) {
	sessions, err := i.svc.Sessions(ctx)
	if err != nil {
		return authdto.StatusOutput{}, err
	}
	out := authdto.StatusOutput{TokenFromEnv: i.svc.TokenFromEnv(), Sessions: make([]authdto.SessionOutput, 0, len(sessions))}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, toSessionOutput(s))
	}
	return out, nil
}

func toSessionOutput(s domain.Session) authdto.SessionOutput {
	return authdto.SessionOutput{
		ID:          s.ID,
		ProviderID:  s.ProviderID,
		Account:     s.Account,
		AccessToken: s.AccessToken,
		Scopes:      append([]string(nil), s.Scopes...),
		CreatedAt:   s.CreatedAt,
	}
}
