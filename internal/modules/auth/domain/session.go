package domain

import (
	"strings"
	"time"
)

const (
	ProviderGitHub = "github"
	SchemaVersion  = 1
)

type ChangeReason string

const (
	ReasonLogin    ChangeReason = "login"
	ReasonLogout   ChangeReason = "logout"
	ReasonExternal ChangeReason = "external"
)

type Session struct {
	ID          string    `yaml:"id"`
	ProviderID  string    `yaml:"provider"`
	Account     string    `yaml:"account,omitempty"`
	AccessToken string    `yaml:"access_token"`
	Scopes      []string  `yaml:"scopes"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Covers reports whether the session was granted every requested scope.
func (s Session) Covers(requested []string) bool {
	granted := make(map[string]struct{}, len(s.Scopes))
	for _, scope := range s.Scopes {
		granted[strings.TrimSpace(scope)] = struct{}{}
	}
	for _, scope := range requested {
		if _, ok := granted[strings.TrimSpace(scope)]; !ok {
			return false
		}
	}
	return true
}

type ChangeEvent struct {
	ProviderID string
	Reason     ChangeReason
}

type DeviceCode struct {
	UserCode        string
	VerificationURI string
	ExpiresAt       time.Time
}

// Grant is the result of a completed interactive sign-in.
type Grant struct {
	AccessToken string
	Scopes      []string
	Account     string
}
