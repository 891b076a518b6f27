package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ghnb/internal/modules/execution/domain"
	"ghnb/internal/modules/execution/dto"
	executionout "ghnb/internal/modules/execution/port/out"
	"ghnb/internal/modules/execution/service"
	"ghnb/internal/modules/execution/usecase"
	"ghnb/internal/platform/clock"
	apperrors "ghnb/internal/platform/errors"
)

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "id-" + string(rune('0'+s.n))
}

type staticProvider struct{}

func (staticProvider) GetSession(context.Context, []string, bool) (domain.Session, bool, error) {
	return domain.Session{ID: "s1", ProviderID: domain.ProviderGitHub, AccessToken: "gho_1"}, true, nil
}

func (staticProvider) Subscribe(context.Context) (<-chan domain.SessionChange, func()) {
	ch := make(chan domain.SessionChange)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

type echoBuilder struct{}

func (echoBuilder) Build(domain.Session) (executionout.ClientFactory, error) { return echoBuilder{}, nil }

func (echoBuilder) NewClient() executionout.GraphQLClient { return echoBuilder{} }

func (echoBuilder) Query(_ context.Context, query string, _ map[string]any) (json.RawMessage, error) {
	if query == "{ broken }" {
		return nil, errors.New("boom")
	}
	return json.RawMessage(`{"ok":true}`), nil
}

type fakeNotebooks struct {
	cells []domain.Cell
}

func (f fakeNotebooks) CodeCells(context.Context, string) ([]domain.Cell, error) {
	return f.cells, nil
}

type memoryRuns struct {
	mu      sync.Mutex
	records []domain.RunRecord
	closed  bool
}

func (m *memoryRuns) Record(_ context.Context, record domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryRuns) Recent(_ context.Context, notebook string, limit int) ([]domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.RunRecord{}
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if notebook == "" || m.records[i].Notebook == notebook {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memoryRuns) Close() error {
	m.closed = true
	return nil
}

func newInteractor(cells []domain.Cell, runs *memoryRuns) *usecase.Interactor {
	clk := &clock.Ticking{At: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC), Step: time.Second}
	controller := service.NewController(staticProvider{}, echoBuilder{}, clk, service.ControllerOptions{}, nil)
	return usecase.NewInteractor(controller, fakeNotebooks{cells: cells}, runs, &seqID{}, nil).(*usecase.Interactor)
}

func TestRunExecutesCodeCellsAndRecordsHistory(t *testing.T) {
	t.Parallel()
	runs := &memoryRuns{}
	interactor := newInteractor([]domain.Cell{{Index: 1, Content: "{ broken }"}, {Index: 2, Content: "{ viewer { login } }"}}, runs)
	defer interactor.Close()

	var streamed []int
	out, err := interactor.Run(context.Background(), dto.RunInput{Path: "queries.github-graphql-nb", OnResult: func(r dto.CellResult) {
		streamed = append(streamed, r.CellIndex)
	}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Succeeded != 1 || out.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if diff := cmp.Diff([]int{1, 2}, streamed); diff != "" {
		t.Fatalf("results must stream in order (-want +got):\n%s", diff)
	}
	if out.Results[0].Output != "{\n    \"message\": \"boom\"\n}" || out.Results[0].Duration() != time.Second {
		t.Fatalf("unexpected first result: %+v", out.Results[0])
	}

	history, err := interactor.History(context.Background(), dto.HistoryInput{Path: "queries.github-graphql-nb", Limit: 10})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].CellIndex != 2 || !history[0].Success || history[0].RunID != out.RunID {
		t.Fatalf("unexpected history: %+v", history)
	}

	status, err := interactor.Status(context.Background())
	if err != nil || status.State != domain.StateReady.String() {
		t.Fatalf("unexpected status %+v err=%v", status, err)
	}
}

func TestRunSelectedCellsMustBeCode(t *testing.T) {
	t.Parallel()
	runs := &memoryRuns{}
	interactor := newInteractor([]domain.Cell{{Index: 1, Content: "{ viewer { login } }"}}, runs)
	defer interactor.Close()

	if _, err := interactor.Run(context.Background(), dto.RunInput{Path: "q.github-graphql-nb", Cells: []int{0}}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for a markup cell, got %v", err)
	}
	out, err := interactor.Run(context.Background(), dto.RunInput{Path: "q.github-graphql-nb", Cells: []int{1}})
	if err != nil || len(out.Results) != 1 || !out.Results[0].Success {
		t.Fatalf("unexpected run output %+v err=%v", out, err)
	}
	if len(runs.records) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(runs.records))
	}
}

func TestCloseClosesHistory(t *testing.T) {
	t.Parallel()
	runs := &memoryRuns{}
	interactor := newInteractor(nil, runs)
	if err := interactor.Close(); err != nil || !runs.closed {
		t.Fatalf("expected history store to close, err=%v", err)
	}
}
