package service

import (
	"path/filepath"
	"strings"

	"ghnb/internal/modules/notebook/domain"
	"ghnb/internal/platform/clock"
	"ghnb/internal/platform/markdown"
)

type ExportService struct {
	clock clock.Clock
}

func NewExportService(clock clock.Clock) *ExportService {
	return &ExportService{clock: clock}
}

var managedCells = markdown.Markers{Start: domain.ManagedCellsStart, End: domain.ManagedCellsEnd}

// Render returns the Markdown form of doc. When existing holds a previous
// export, only its managed cells block and the notebook metadata keys change.
func (s *ExportService) Render(doc domain.Document, notebookPath, existing string) (string, bool, error) {
	fm := markdown.NewFrontmatter()
	body := ""
	if strings.TrimSpace(existing) != "" {
		var err error
		if fm, body, err = markdown.Split(existing); err != nil {
			return "", false, err
		}
	} else {
		name := strings.TrimSuffix(filepath.Base(notebookPath), filepath.Ext(notebookPath))
		body = "# " + name + "\n"
	}

	for _, kv := range []struct {
		key   string
		value any
	}{
		{"notebook_type", domain.NotebookType},
		{"notebook", filepath.Base(notebookPath)},
		{"cells", len(doc.Cells)},
		{"exported_at", s.clock.Now().Format("2006-01-02T15:04:05Z07:00")},
	} {
		if err := fm.Set(kv.key, kv.value); err != nil {
			return "", false, err
		}
	}

	body, replaced := markdown.ReplaceBlock(body, managedCells, renderCells(doc))
	rendered, err := fm.Render(body)
	if err != nil {
		return "", false, err
	}
	return rendered, replaced, nil
}

func renderCells(doc domain.Document) string {
	parts := make([]string, 0, len(doc.Cells))
	for _, cell := range doc.Cells {
		if cell.Kind == domain.CellKindMarkup {
			parts = append(parts, strings.TrimRight(cell.Content, "\n"))
			continue
		}
		parts = append(parts, "```"+domain.Language+"\n"+strings.TrimRight(cell.Content, "\n")+"\n```")
	}
	return strings.Join(parts, "\n\n")
}
