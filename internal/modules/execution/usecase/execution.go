package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"ghnb/internal/modules/execution/domain"
	"ghnb/internal/modules/execution/dto"
	executionin "ghnb/internal/modules/execution/port/in"
	executionout "ghnb/internal/modules/execution/port/out"
	"ghnb/internal/modules/execution/service"
	apperrors "ghnb/internal/platform/errors"
	"ghnb/internal/platform/id"
)

type Interactor struct {
	controller *service.Controller
	notebooks  executionout.NotebookSource
	runs       executionout.RunStore
	idGen      id.Generator
	logger     *zap.Logger
}

func NewInteractor(
	controller *service.Controller,
	notebooks executionout.NotebookSource,
	runs executionout.RunStore,
	idGen id.Generator,
	logger *zap.Logger,
) executionin.Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interactor{
		controller: controller,
		notebooks:  notebooks,
		runs:       runs,
		idGen:      idGen,
		logger:     logger.Named("execution"),
	}
}

func (i *Interactor) Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return dto.RunOutput{}, fmt.Errorf("%w: notebook path is required", apperrors.ErrInvalidInput)
	}
	codeCells, err := i.notebooks.CodeCells(ctx, input.Path)
	if err != nil {
		return dto.RunOutput{}, err
	}
	cells, err := selectCells(codeCells, input.Cells)
	if err != nil {
		return dto.RunOutput{}, err
	}

	out := dto.RunOutput{RunID: i.idGen.New(), Path: input.Path, Results: make([]dto.CellResult, 0, len(cells))}
	notebook := notebookKey(input.Path)
	i.controller.ExecuteCells(ctx, cells, func(cell domain.Cell) executionout.CellExecution {
		return &recordedExecution{
			cellIndex: cell.Index,
			onEnd: func(result domain.Result) {
				cellResult := i.record(ctx, out.RunID, notebook, result)
				out.Results = append(out.Results, cellResult)
				if result.Success {
					out.Succeeded++
				} else {
					out.Failed++
				}
				if input.OnResult != nil {
					input.OnResult(cellResult)
				}
			},
		}
	})
	return out, nil
}

// record stores a finished cell. History is best-effort; a failed insert
// never fails the run.
func (i *Interactor) record(ctx context.Context, runID, notebook string, result domain.Result) dto.CellResult {
	if i.runs != nil {
		err := i.runs.Record(context.WithoutCancel(ctx), domain.RunRecord{
			ID:        i.idGen.New(),
			RunID:     runID,
			Notebook:  notebook,
			CellIndex: result.CellIndex,
			Success:   result.Success,
			StartedAt: result.StartedAt,
			EndedAt:   result.EndedAt,
			MIME:      result.Output.MIME,
			Output:    result.Output.Data,
		})
		if err != nil {
			i.logger.Warn("record cell run", zap.Int("cell", result.CellIndex), zap.Error(err))
		}
	}
	return dto.CellResult{
		RunID:     runID,
		CellIndex: result.CellIndex,
		Success:   result.Success,
		StartedAt: result.StartedAt,
		EndedAt:   result.EndedAt,
		MIME:      result.Output.MIME,
		Output:    result.Output.String(),
	}
}

func (i *Interactor) History(ctx context.Context, input dto.HistoryInput) ([]dto.HistoryEntry, error) {
	if i.runs == nil {
		return nil, fmt.Errorf("%w: run history is not configured", apperrors.ErrNotFound)
	}
	notebook := ""
	if strings.TrimSpace(input.Path) != "" {
		notebook = notebookKey(input.Path)
	}
	records, err := i.runs.Recent(ctx, notebook, input.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.HistoryEntry, 0, len(records))
	for _, record := range records {
		out = append(out, dto.HistoryEntry{
			RunID:     record.RunID,
			Notebook:  record.Notebook,
			CellIndex: record.CellIndex,
			Success:   record.Success,
			StartedAt: record.StartedAt,
			EndedAt:   record.EndedAt,
			Output:    string(record.Output),
		})
	}
	return out, nil
}

func (i *Interactor) Status(_ context.Context) (dto.StatusOutput, error) {
	out := dto.StatusOutput{State: i.controller.State().String(), Scopes: i.controller.Scopes()}
	if session, ok := i.controller.Session(); ok {
		out.Account = session.Account
	}
	return out, nil
}

func (i *Interactor) SetScopes(scopes []string) bool {
	return i.controller.SetScopes(scopes)
}

func (i *Interactor) Close() error {
	i.controller.Close()
	if i.runs != nil {
		return i.runs.Close()
	}
	return nil
}

func selectCells(codeCells []domain.Cell, requested []int) ([]domain.Cell, error) {
	if len(requested) == 0 {
		return codeCells, nil
	}
	byIndex := make(map[int]domain.Cell, len(codeCells))
	for _, cell := range codeCells {
		byIndex[cell.Index] = cell
	}
	out := make([]domain.Cell, 0, len(requested))
	for _, index := range requested {
		cell, ok := byIndex[index]
		if !ok {
			return nil, fmt.Errorf("%w: cell %d is not a code cell", apperrors.ErrInvalidInput, index)
		}
		out = append(out, cell)
	}
	return out, nil
}

func notebookKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// recordedExecution collects a cell's lifecycle and hands the finished
// result to onEnd.
type recordedExecution struct {
	cellIndex int
	startedAt time.Time
	output    domain.Output
	onEnd     func(domain.Result)
}

func (e *recordedExecution) Start(at time.Time) {
	e.startedAt = at
}

func (e *recordedExecution) ReplaceOutput(output domain.Output) {
	e.output = output
}

func (e *recordedExecution) End(success bool, at time.Time) {
	e.onEnd(domain.Result{
		CellIndex: e.cellIndex,
		Success:   success,
		StartedAt: e.startedAt,
		EndedAt:   at,
		Output:    e.output,
	})
}
