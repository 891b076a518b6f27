package out

import (
	"context"
	"sync"

	authdto "ghnb/internal/modules/auth/dto"
	authin "ghnb/internal/modules/auth/port/in"
	"ghnb/internal/modules/execution/domain"
	executionout "ghnb/internal/modules/execution/port/out"
)

// AuthSessionAdapter exposes the auth module as the controller's session provider.
type AuthSessionAdapter struct {
	auth authin.Usecase
}

func NewAuthSessionAdapter(auth authin.Usecase) executionout.SessionProvider {
	return &AuthSessionAdapter{auth: auth}
}

func (a *AuthSessionAdapter) GetSession(ctx context.Context, scopes []string, createIfNone bool) (domain.Session, bool, error) {
	session, ok, err := a.auth.GetSession(ctx, authdto.GetSessionInput{Scopes: scopes, CreateIfNone: createIfNone})
	if err != nil || !ok {
		return domain.Session{}, ok, err
	}
	return domain.Session{
		ID:          session.ID,
		ProviderID:  session.ProviderID,
		Account:     session.Account,
		AccessToken: session.AccessToken,
		Scopes:      append([]string(nil), session.Scopes...),
	}, true, nil
}

func (a *AuthSessionAdapter) Subscribe(ctx context.Context) (<-chan domain.SessionChange, func()) {
	events, cancel := a.auth.Subscribe(ctx)
	out := make(chan domain.SessionChange, 1)
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
		for event := range events {
			select {
			case out <- domain.SessionChange{ProviderID: event.ProviderID, Reason: event.Reason}:
			case <-done:
				return
			}
		}
	}()
	return out, stop
}
