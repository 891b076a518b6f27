package out

import (
	"context"
	"encoding/json"
	"time"

	"ghnb/internal/modules/execution/domain"
)

type SessionProvider interface {
	GetSession(ctx context.Context, scopes []string, createIfNone bool) (domain.Session, bool, error)
	// Subscribe delivers session change notifications until cancel is called
	// or ctx is done.
	Subscribe(ctx context.Context) (<-chan domain.SessionChange, func())
}

type ClientFactoryBuilder interface {
	Build(session domain.Session) (ClientFactory, error)
}

type ClientFactory interface {
	NewClient() GraphQLClient
}

// GraphQLClient returns the response `data` value on success.
type GraphQLClient interface {
	Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

// CellExecution is the host's handle on a single running cell.
type CellExecution interface {
	Start(at time.Time)
	ReplaceOutput(output domain.Output)
	End(success bool, at time.Time)
}

type RunStore interface {
	Record(ctx context.Context, record domain.RunRecord) error
	Recent(ctx context.Context, notebook string, limit int) ([]domain.RunRecord, error)
	Close() error
}

// NotebookSource lists a notebook's code cells with their notebook indexes.
type NotebookSource interface {
	CodeCells(ctx context.Context, path string) ([]domain.Cell, error)
}
