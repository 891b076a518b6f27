package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ghnb/internal/modules/auth/domain"
	authout "ghnb/internal/modules/auth/port/out"
	"ghnb/internal/platform/clock"
	apperrors "ghnb/internal/platform/errors"
	"ghnb/internal/platform/id"
)

type Options struct {
	// EnvToken, when set, short-circuits stored sessions and the device flow.
	EnvToken    string
	OpenBrowser bool
}

// AuthService is the GitHub session provider: configured tokens, stored
// sessions, the interactive device flow and the change notification stream.
type AuthService struct {
	clock      clock.Clock
	idGen      id.Generator
	store      authout.TokenStore
	authorizer authout.DeviceAuthorizer
	prompter   authout.Prompter
	launcher   authout.ExternalLauncher
	opts       Options
	logger     *zap.Logger

	loginMu sync.Mutex

	mu      sync.Mutex
	subs    map[int]chan domain.ChangeEvent
	nextSub int
}

func NewAuthService(
	clock clock.Clock,
	idGen id.Generator,
	store authout.TokenStore,
	authorizer authout.DeviceAuthorizer,
	prompter authout.Prompter,
	launcher authout.ExternalLauncher,
	opts Options,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		clock:      clock,
		idGen:      idGen,
		store:      store,
		authorizer: authorizer,
		prompter:   prompter,
		launcher:   launcher,
		opts:       opts,
		logger:     logger.Named("auth"),
		subs:       map[int]chan domain.ChangeEvent{},
	}
}

func (s *AuthService) TokenFromEnv() bool {
	return s.opts.EnvToken != ""
}

// GetSession returns a session covering scopes. With createIfNone it runs
// the device flow when nothing usable is stored; otherwise it reports false.
func (s *AuthService) GetSession(ctx context.Context, scopes []string, createIfNone bool) (domain.Session, bool, error) {
	if s.opts.EnvToken != "" {
		return domain.Session{
			ID:          "env",
			ProviderID:  domain.ProviderGitHub,
			Account:     "env",
			AccessToken: s.opts.EnvToken,
			Scopes:      append([]string(nil), scopes...),
		}, true, nil
	}
	if session, ok, err := s.findStored(ctx, scopes); err != nil || ok {
		return session, ok, err
	}
	if !createIfNone {
		return domain.Session{}, false, nil
	}
	return s.login(ctx, scopes, false)
}

// Login always runs the interactive flow, replacing stored sessions.
func (s *AuthService) Login(ctx context.Context, scopes []string) (domain.Session, error) {
	session, _, err := s.login(ctx, scopes, true)
	return session, err
}

func (s *AuthService) login(ctx context.Context, scopes []string, force bool) (domain.Session, bool, error) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	// Another caller may have finished a sign-in while this one waited.
	if !force {
		if session, ok, err := s.findStored(ctx, scopes); err != nil || ok {
			return session, ok, err
		}
	}
	if s.authorizer == nil {
		return domain.Session{}, false, fmt.Errorf("interactive sign-in unavailable: %w", apperrors.ErrNotAuthenticated)
	}

	s.logger.Info("starting device flow", zap.Strings("scopes", scopes))
	grant, err := s.authorizer.Authorize(ctx, scopes, func(code domain.DeviceCode) {
		if s.prompter != nil {
			s.prompter.PromptDeviceCode(ctx, code)
		}
		if s.opts.OpenBrowser && s.launcher != nil {
			if err := s.launcher.Open(ctx, code.VerificationURI); err != nil {
				s.logger.Warn("open verification page", zap.Error(err))
			}
		}
	})
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("device flow: %w", err)
	}

	granted := grant.Scopes
	if len(granted) == 0 {
		granted = append([]string(nil), scopes...)
	}
	session := domain.Session{
		ID:          s.idGen.New(),
		ProviderID:  domain.ProviderGitHub,
		Account:     grant.Account,
		AccessToken: grant.AccessToken,
		Scopes:      granted,
		CreatedAt:   s.clock.Now(),
	}
	if _, err := s.store.DeleteProvider(ctx, domain.ProviderGitHub); err != nil {
		return domain.Session{}, false, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return domain.Session{}, false, err
	}
	s.logger.Info("signed in", zap.String("session", session.ID), zap.String("account", session.Account), zap.Strings("scopes", session.Scopes))
	s.publish(domain.ChangeEvent{ProviderID: domain.ProviderGitHub, Reason: domain.ReasonLogin})
	return session, true, nil
}

func (s *AuthService) Logout(ctx context.Context) (int, error) {
	removed, err := s.store.DeleteProvider(ctx, domain.ProviderGitHub)
	if err != nil {
		return 0, err
	}
	s.logger.Info("signed out", zap.Int("removed", removed))
	s.publish(domain.ChangeEvent{ProviderID: domain.ProviderGitHub, Reason: domain.ReasonLogout})
	return removed, nil
}

func (s *AuthService) Sessions(ctx context.Context) ([]domain.Session, error) {
	return s.store.Load(ctx)
}

// Subscribe returns a buffered change stream. Slow subscribers miss events
// rather than blocking publishers.
func (s *AuthService) Subscribe() (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, 4)
	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, key)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// WatchStore relays token store changes made by other processes as change
// events until ctx ends.
func (s *AuthService) WatchStore(ctx context.Context) error {
	changes, err := s.store.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for range changes {
			s.logger.Debug("token store changed on disk")
			s.publish(domain.ChangeEvent{ProviderID: domain.ProviderGitHub, Reason: domain.ReasonExternal})
		}
	}()
	return nil
}

func (s *AuthService) findStored(ctx context.Context, scopes []string) (domain.Session, bool, error) {
	sessions, err := s.store.Load(ctx)
	if err != nil {
		return domain.Session{}, false, err
	}
	for _, session := range sessions {
		if session.ProviderID == domain.ProviderGitHub && session.AccessToken != "" && session.Covers(scopes) {
			return session, true, nil
		}
	}
	return domain.Session{}, false, nil
}

func (s *AuthService) publish(event domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
