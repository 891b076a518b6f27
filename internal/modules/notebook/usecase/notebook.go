package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ghnb/internal/modules/notebook/domain"
	"ghnb/internal/modules/notebook/dto"
	notebookin "ghnb/internal/modules/notebook/port/in"
	notebookout "ghnb/internal/modules/notebook/port/out"
	"ghnb/internal/modules/notebook/service"
	apperrors "ghnb/internal/platform/errors"
	"ghnb/internal/platform/slug"
)

type Interactor struct {
	codec    service.Codec
	exporter *service.ExportService
	store    notebookout.NotebookStore
}

func NewInteractor(codec service.Codec, exporter *service.ExportService, store notebookout.NotebookStore) notebookin.Usecase {
	return &Interactor{codec: codec, exporter: exporter, store: store}
}

func (i *Interactor) Create(ctx context.Context, path string) (dto.NotebookOutput, error) {
	if strings.TrimSpace(path) == "" {
		return dto.NotebookOutput{}, fmt.Errorf("%w: notebook path is required", apperrors.ErrInvalidInput)
	}
	exists, err := i.store.Exists(ctx, path)
	if err != nil {
		return dto.NotebookOutput{}, err
	}
	if exists {
		return dto.NotebookOutput{}, fmt.Errorf("notebook %s: %w", path, apperrors.ErrAlreadyExists)
	}
	doc := i.codec.CreateDefault()
	if err := i.store.Write(ctx, path, i.codec.Serialize(doc)); err != nil {
		return dto.NotebookOutput{}, err
	}
	return toOutput(path, doc), nil
}

func (i *Interactor) Open(ctx context.Context, path string) (dto.NotebookOutput, error) {
	doc, err := i.load(ctx, path)
	if err != nil {
		return dto.NotebookOutput{}, err
	}
	return toOutput(path, doc), nil
}

func (i *Interactor) Save(ctx context.Context, input dto.SaveInput) (dto.NotebookOutput, error) {
	doc := domain.Document{Cells: make([]domain.Cell, 0, len(input.Cells))}
	for _, cell := range input.Cells {
		if cell.Kind == domain.CellKindMarkup.String() {
			doc.Cells = append(doc.Cells, domain.NewMarkupCell(cell.Content))
			continue
		}
		doc.Cells = append(doc.Cells, domain.NewCodeCell(cell.Content))
	}
	if err := i.store.Write(ctx, input.Path, i.codec.Serialize(doc)); err != nil {
		return dto.NotebookOutput{}, err
	}
	return toOutput(input.Path, doc), nil
}

func (i *Interactor) AppendCell(ctx context.Context, input dto.AppendCellInput) (dto.NotebookOutput, error) {
	doc, err := i.load(ctx, input.Path)
	if err != nil {
		return dto.NotebookOutput{}, err
	}
	cell := domain.NewCodeCell(input.Content)
	if input.Markdown {
		cell = domain.NewMarkupCell(input.Content)
	}
	doc.Cells = append(doc.Cells, cell)
	if err := i.store.Write(ctx, input.Path, i.codec.Serialize(doc)); err != nil {
		return dto.NotebookOutput{}, err
	}
	return toOutput(input.Path, doc), nil
}

func (i *Interactor) Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error) {
	doc, err := i.load(ctx, input.Path)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	if strings.TrimSpace(input.OutPath) == "" {
		input.OutPath = DefaultExportPath(input.Path)
	}
	existing := ""
	ok, err := i.store.Exists(ctx, input.OutPath)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	if ok {
		raw, err := i.store.Read(ctx, input.OutPath)
		if err != nil {
			return dto.ExportOutput{}, err
		}
		existing = string(raw)
	}
	rendered, replaced, err := i.exporter.Render(doc, input.Path, existing)
	if err != nil {
		return dto.ExportOutput{}, fmt.Errorf("render export: %w", err)
	}
	if err := i.store.Write(ctx, input.OutPath, []byte(rendered)); err != nil {
		return dto.ExportOutput{}, err
	}
	return dto.ExportOutput{Path: input.OutPath, Cells: len(doc.Cells), Replaced: replaced}, nil
}

// DefaultExportPath places the export next to the notebook, named after it.
func DefaultExportPath(notebookPath string) string {
	base := strings.TrimSuffix(filepath.Base(notebookPath), domain.FileExtension)
	return filepath.Join(filepath.Dir(notebookPath), slug.Make(base)+".md")
}

func (i *Interactor) load(ctx context.Context, path string) (domain.Document, error) {
	if strings.TrimSpace(path) == "" {
		return domain.Document{}, fmt.Errorf("%w: notebook path is required", apperrors.ErrInvalidInput)
	}
	raw, err := i.store.Read(ctx, path)
	if err != nil {
		return domain.Document{}, err
	}
	doc, err := i.codec.Deserialize(raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	return doc, nil
}

func toOutput(path string, doc domain.Document) dto.NotebookOutput {
	cells := make([]dto.CellOutput, 0, len(doc.Cells))
	for idx, cell := range doc.Cells {
		cells = append(cells, dto.CellOutput{
			Index:    idx,
			Kind:     cell.Kind.String(),
			Language: cell.Language,
			Content:  cell.Content,
		})
	}
	return dto.NotebookOutput{Path: path, Cells: cells}
}
