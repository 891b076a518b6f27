package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ghnb/internal/modules/notebook/domain"
	apperrors "ghnb/internal/platform/errors"
)

type persistedCell struct {
	Code string `json:"code"`
	Kind string `json:"kind"`
}

type persistedNotebook struct {
	Cells []persistedCell `json:"cells"`
}

// Codec converts between the persisted notebook JSON and documents.
// Execution output is never part of the persisted form.
type Codec struct{}

func NewCodec() Codec {
	return Codec{}
}

func (Codec) CreateDefault() domain.Document {
	return domain.Document{Cells: []domain.Cell{domain.NewCodeCell("")}}
}

func (Codec) Serialize(doc domain.Document) []byte {
	persisted := persistedNotebook{Cells: make([]persistedCell, 0, len(doc.Cells))}
	for _, cell := range doc.Cells {
		kind := "code"
		if cell.Kind == domain.CellKindMarkup {
			kind = "markdown"
		}
		persisted.Cells = append(persisted.Cells, persistedCell{Code: cell.Content, Kind: kind})
	}
	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding plain strings cannot fail.
	_ = enc.Encode(persisted)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

func (c Codec) Deserialize(content []byte) (domain.Document, error) {
	if len(content) == 0 {
		content = c.Serialize(c.CreateDefault())
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(content, &top); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", apperrors.ErrFormat, err)
	}
	if top == nil {
		return domain.Document{}, fmt.Errorf("%w: notebook content is not an object", apperrors.ErrFormat)
	}
	rawCells, ok := top["cells"]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: missing required `cells` property", apperrors.ErrFormat)
	}
	if !isArray(rawCells) {
		return domain.Document{}, fmt.Errorf("%w: `cells` is not an array", apperrors.ErrFormat)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(rawCells, &elems); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", apperrors.ErrFormat, err)
	}

	cells := make([]domain.Cell, 0, len(elems))
	for _, elem := range elems {
		cell, ok := decodeCell(elem)
		if !ok {
			continue
		}
		cells = append(cells, cell)
	}
	return domain.Document{Cells: cells}, nil
}

// decodeCell reports false for elements that are skipped rather than failing the document.
func decodeCell(elem json.RawMessage) (domain.Cell, bool) {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Cell{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return domain.Cell{}, false
	}
	rawCode, hasCode := fields["code"]
	rawKind, hasKind := fields["kind"]
	if !hasCode || !hasKind {
		return domain.Cell{}, false
	}
	var code string
	if err := json.Unmarshal(rawCode, &code); err != nil {
		return domain.Cell{}, false
	}
	var kind string
	_ = json.Unmarshal(rawKind, &kind)
	if kind == "code" {
		return domain.NewCodeCell(code), true
	}
	return domain.NewMarkupCell(code), true
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
