package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ghnb/internal/modules/auth/domain"
	"ghnb/internal/modules/auth/service"
	"ghnb/internal/platform/clock"
)

type fakeID struct{}

func (fakeID) New() string { return "sess-1" }

type memoryStore struct {
	mu       sync.Mutex
	sessions []domain.Session
}

func (m *memoryStore) Load(context.Context) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Session(nil), m.sessions...), nil
}

func (m *memoryStore) Save(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memoryStore) DeleteProvider(_ context.Context, providerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.sessions[:0]
	removed := 0
	for _, s := range m.sessions {
		if s.ProviderID == providerID {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	return removed, nil
}

func (m *memoryStore) Watch(context.Context) (<-chan struct{}, error) {
	return make(chan struct{}), nil
}

type fakeAuthorizer struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
}

func (f *fakeAuthorizer) Authorize(_ context.Context, scopes []string, prompt func(domain.DeviceCode)) (domain.Grant, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return domain.Grant{}, f.err
	}
	prompt(domain.DeviceCode{UserCode: "ABCD-1234", VerificationURI: "https://github.com/login/device"})
	time.Sleep(f.delay)
	return domain.Grant{AccessToken: "gho_device", Scopes: scopes}, nil
}

func (f *fakeAuthorizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPrompter struct {
	mu    sync.Mutex
	codes []string
}

func (p *recordingPrompter) PromptDeviceCode(_ context.Context, code domain.DeviceCode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes = append(p.codes, code.UserCode)
}

func newService(store *memoryStore, authorizer *fakeAuthorizer, prompter *recordingPrompter, opts service.Options) *service.AuthService {
	return service.NewAuthService(clock.Fixed(time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)), fakeID{}, store, authorizer, prompter, nil, opts, nil)
}

func TestEnvTokenNeverStartsDeviceFlow(t *testing.T) {
	t.Parallel()
	authorizer := &fakeAuthorizer{}
	svc := newService(&memoryStore{}, authorizer, &recordingPrompter{}, service.Options{EnvToken: "ghp_env"})

	session, ok, err := svc.GetSession(context.Background(), []string{"repo"}, true)
	if err != nil || !ok {
		t.Fatalf("expected env session, got ok=%t err=%v", ok, err)
	}
	if session.AccessToken != "ghp_env" || session.ProviderID != domain.ProviderGitHub {
		t.Fatalf("unexpected env session: %+v", session)
	}
	if authorizer.Calls() != 0 {
		t.Fatalf("device flow must not run with a configured token")
	}
}

func TestStoredSessionMustCoverScopes(t *testing.T) {
	t.Parallel()
	store := &memoryStore{sessions: []domain.Session{{ID: "a", ProviderID: domain.ProviderGitHub, AccessToken: "gho_a", Scopes: []string{"repo"}}}}
	svc := newService(store, &fakeAuthorizer{}, &recordingPrompter{}, service.Options{})

	if s, ok, err := svc.GetSession(context.Background(), []string{"repo"}, false); err != nil || !ok || s.ID != "a" {
		t.Fatalf("expected stored session a, got %+v ok=%t err=%v", s, ok, err)
	}
	if _, ok, err := svc.GetSession(context.Background(), []string{"repo", "workflow"}, false); err != nil || ok {
		t.Fatalf("expected no session for wider scopes, got ok=%t err=%v", ok, err)
	}
}

func TestCreateIfNoneRunsDeviceFlowOnceAndPublishes(t *testing.T) {
	t.Parallel()
	store := &memoryStore{}
	authorizer := &fakeAuthorizer{delay: 20 * time.Millisecond}
	prompter := &recordingPrompter{}
	svc := newService(store, authorizer, prompter, service.Options{})
	events, cancel := svc.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	tokens := make([]string, 3)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, ok, err := svc.GetSession(context.Background(), []string{"repo"}, true)
			if err != nil || !ok {
				t.Errorf("get session %d: ok=%t err=%v", i, ok, err)
				return
			}
			tokens[i] = s.AccessToken
		}(i)
	}
	wg.Wait()

	if authorizer.Calls() != 1 {
		t.Fatalf("expected a single device flow, got %d", authorizer.Calls())
	}
	for i, tok := range tokens {
		if tok != "gho_device" {
			t.Fatalf("caller %d got token %q", i, tok)
		}
	}
	if len(prompter.codes) != 1 || prompter.codes[0] != "ABCD-1234" {
		t.Fatalf("expected one prompt, got %v", prompter.codes)
	}
	select {
	case ev := <-events:
		if ev.Reason != domain.ReasonLogin || ev.ProviderID != domain.ProviderGitHub {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected login event")
	}
}

func TestDeviceFlowFailureIsReturned(t *testing.T) {
	t.Parallel()
	boom := errors.New("access_denied")
	svc := newService(&memoryStore{}, &fakeAuthorizer{err: boom}, &recordingPrompter{}, service.Options{})
	if _, _, err := svc.GetSession(context.Background(), []string{"repo"}, true); !errors.Is(err, boom) {
		t.Fatalf("expected device flow error, got %v", err)
	}
}

func TestLogoutRemovesSessionsAndPublishes(t *testing.T) {
	t.Parallel()
	store := &memoryStore{sessions: []domain.Session{{ID: "a", ProviderID: domain.ProviderGitHub, AccessToken: "gho_a", Scopes: []string{"repo"}}}}
	svc := newService(store, &fakeAuthorizer{}, &recordingPrompter{}, service.Options{})
	events, cancel := svc.Subscribe()

	removed, err := svc.Logout(context.Background())
	if err != nil || removed != 1 {
		t.Fatalf("logout: removed=%d err=%v", removed, err)
	}
	ev := <-events
	if ev.Reason != domain.ReasonLogout {
		t.Fatalf("expected logout event, got %+v", ev)
	}
	cancel()
	if _, open := <-events; open {
		t.Fatalf("expected subscription channel to be closed after cancel")
	}
	if _, ok, _ := svc.GetSession(context.Background(), []string{"repo"}, false); ok {
		t.Fatalf("expected no session after logout")
	}
}
