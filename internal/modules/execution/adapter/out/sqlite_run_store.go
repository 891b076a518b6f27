package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ghnb/internal/modules/execution/domain"
	executionout "ghnb/internal/modules/execution/port/out"

	_ "modernc.org/sqlite"
)

// Fixed-width timestamps keep lexical and chronological order equal.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore keeps the history of cell executions.
type SQLiteRunStore struct {
	db *sql.DB
}

func NewSQLiteRunStore(dbPath string) (executionout.RunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteRunStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteRunStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS cell_runs (
  id TEXT PRIMARY KEY,
  run_id TEXT NOT NULL,
  notebook TEXT NOT NULL,
  cell_index INTEGER NOT NULL,
  success INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  ended_at TEXT NOT NULL,
  mime TEXT NOT NULL,
  output BLOB
);
CREATE INDEX IF NOT EXISTS cell_runs_notebook_started ON cell_runs (notebook, started_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create cell_runs table: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Record(ctx context.Context, record domain.RunRecord) error {
	const stmt = `
INSERT INTO cell_runs (id, run_id, notebook, cell_index, success, started_at, ended_at, mime, output)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	success := 0
	if record.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, stmt,
		record.ID,
		record.RunID,
		record.Notebook,
		record.CellIndex,
		success,
		record.StartedAt.UTC().Format(timeLayout),
		record.EndedAt.UTC().Format(timeLayout),
		record.MIME,
		record.Output,
	)
	if err != nil {
		return fmt.Errorf("insert cell run: %w", err)
	}
	return nil
}

// Recent returns the newest records first. An empty notebook matches all.
func (s *SQLiteRunStore) Recent(ctx context.Context, notebook string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
SELECT id, run_id, notebook, cell_index, success, started_at, ended_at, mime, output
FROM cell_runs
WHERE (? = '' OR notebook = ?)
ORDER BY started_at DESC, cell_index DESC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, query, notebook, notebook, limit)
	if err != nil {
		return nil, fmt.Errorf("query cell runs: %w", err)
	}
	defer rows.Close()

	out := []domain.RunRecord{}
	for rows.Next() {
		var (
			record    domain.RunRecord
			success   int
			startedAt string
			endedAt   string
		)
		if err := rows.Scan(&record.ID, &record.RunID, &record.Notebook, &record.CellIndex, &success, &startedAt, &endedAt, &record.MIME, &record.Output); err != nil {
			return nil, fmt.Errorf("scan cell run: %w", err)
		}
		record.Success = success == 1
		if record.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if record.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cell runs: %w", err)
	}
	return out, nil
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}
