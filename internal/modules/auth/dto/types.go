package dto

import "time"

type GetSessionInput struct {
	Scopes       []string
	CreateIfNone bool
}

type SessionOutput struct {
	ID          string
	ProviderID  string
	Account     string
	AccessToken string
	Scopes      []string
	CreatedAt   time.Time
}

type ChangeEvent struct {
	ProviderID string
	Reason     string
}

type LoginInput struct {
	Scopes []string
}

type LogoutOutput struct {
	Removed int
}

type StatusOutput struct {
	TokenFromEnv bool
	Sessions     []SessionOutput
}
