package dto

import "time"

type RunInput struct {
	Path string
	// Cells lists notebook cell indexes to run; empty runs every code cell.
	Cells    []int
	OnResult func(CellResult)
}

type CellResult struct {
	RunID     string
	CellIndex int
	Success   bool
	StartedAt time.Time
	EndedAt   time.Time
	MIME      string
	Output    string
}

func (r CellResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

type RunOutput struct {
	RunID     string
	Path      string
	Results   []CellResult
	Succeeded int
	Failed    int
}

type HistoryInput struct {
	// Path filters history to one notebook; empty lists every notebook.
	Path  string
	Limit int
}

type HistoryEntry struct {
	RunID     string
	Notebook  string
	CellIndex int
	Success   bool
	StartedAt time.Time
	EndedAt   time.Time
	Output    string
}

type StatusOutput struct {
	State   string
	Account string
	Scopes  []string
}
