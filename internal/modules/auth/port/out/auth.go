package out

import (
	"context"

	"ghnb/internal/modules/auth/domain"
)

type TokenStore interface {
	Load(ctx context.Context) ([]domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	DeleteProvider(ctx context.Context, providerID string) (int, error)
	// Watch signals changes made to the store by other processes until ctx ends.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

type DeviceAuthorizer interface {
	Authorize(ctx context.Context, scopes []string, prompt func(domain.DeviceCode)) (domain.Grant, error)
}

type Prompter interface {
	PromptDeviceCode(ctx context.Context, code domain.DeviceCode)
}

type ExternalLauncher interface {
	Open(ctx context.Context, target string) error
}
