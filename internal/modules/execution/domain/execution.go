package domain

import "time"

const (
	ProviderGitHub = "github"
	ControllerID   = "github-graphql"
	ControllerName = "GitHub GraphQL"
	Language       = "graphql"
)

// State is the controller's credential/client lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateReady:
		return "ready"
	default:
		return "unauthenticated"
	}
}

// Session is the credential the controller caches; it is never persisted here.
type Session struct {
	ID          string
	ProviderID  string
	Account     string
	AccessToken string
	Scopes      []string
}

type SessionChange struct {
	ProviderID string
	Reason     string
}

type Cell struct {
	Index   int
	Content string
}

type Result struct {
	CellIndex int
	Success   bool
	StartedAt time.Time
	EndedAt   time.Time
	Output    Output
}

type RunRecord struct {
	ID        string
	RunID     string
	Notebook  string
	CellIndex int
	Success   bool
	StartedAt time.Time
	EndedAt   time.Time
	MIME      string
	Output    []byte
}
