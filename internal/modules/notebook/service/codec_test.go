package service_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ghnb/internal/modules/notebook/domain"
	"ghnb/internal/modules/notebook/service"
	apperrors "ghnb/internal/platform/errors"
)

func TestCreateDefaultHasSingleEmptyCodeCell(t *testing.T) {
	t.Parallel()
	doc := service.NewCodec().CreateDefault()
	want := domain.Document{Cells: []domain.Cell{{Kind: domain.CellKindCode, Content: "", Language: "graphql"}}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("default document mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeProducesPersistedShape(t *testing.T) {
	t.Parallel()
	doc := domain.Document{Cells: []domain.Cell{
		domain.NewMarkupCell("# Issues <open> & closed"),
		domain.NewCodeCell("query { viewer { login } }"),
	}}
	got := string(service.NewCodec().Serialize(doc))
	want := `{"cells":[{"code":"# Issues <open> & closed","kind":"markdown"},{"code":"query { viewer { login } }","kind":"code"}]}`
	if got != want {
		t.Fatalf("unexpected serialized form:\n got %s\nwant %s", got, want)
	}
	if empty := string(service.NewCodec().Serialize(domain.Document{})); empty != `{"cells":[]}` {
		t.Fatalf("empty document must serialize to an empty array, got %s", empty)
	}
}

func TestRoundTripPreservesCountKindAndContent(t *testing.T) {
	t.Parallel()
	codec := service.NewCodec()
	docs := []domain.Document{
		{},
		codec.CreateDefault(),
		{Cells: []domain.Cell{
			domain.NewCodeCell("variables {\"owner\":\"octo\"}\nquery($owner: String!) { user(login: $owner) { id } }"),
			domain.NewMarkupCell("Notes with \"quotes\", unicode ✓ and\nnewlines"),
			domain.NewCodeCell(""),
		}},
	}
	for _, doc := range docs {
		got, err := codec.Deserialize(codec.Serialize(doc))
		if err != nil {
			t.Fatalf("deserialize: %v", err)
		}
		if len(doc.Cells) == 0 {
			if len(got.Cells) != 0 {
				t.Fatalf("expected no cells, got %d", len(got.Cells))
			}
			continue
		}
		if diff := cmp.Diff(doc, got); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDeserializeEmptyEqualsDefault(t *testing.T) {
	t.Parallel()
	codec := service.NewCodec()
	fromEmpty, err := codec.Deserialize(nil)
	if err != nil {
		t.Fatalf("deserialize empty: %v", err)
	}
	fromDefault, err := codec.Deserialize(codec.Serialize(codec.CreateDefault()))
	if err != nil {
		t.Fatalf("deserialize default: %v", err)
	}
	if diff := cmp.Diff(fromDefault, fromEmpty); diff != "" {
		t.Fatalf("empty input mismatch (-want +got):\n%s", diff)
	}
}

func TestDeserializeFormatErrors(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"missing cells":   `{"notCells": []}`,
		"cells not array": `{"cells": "notarray"}`,
		"cells null":      `{"cells": null}`,
		"top level null":  `null`,
		"top level array": `[]`,
		"invalid json":    `{"cells": [`,
	}
	for name, input := range cases {
		name, input := name, input
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := service.NewCodec().Deserialize([]byte(input))
			if !errors.Is(err, apperrors.ErrFormat) {
				t.Fatalf("expected format error, got %v", err)
			}
		})
	}
}

func TestDeserializeDropsMalformedElements(t *testing.T) {
	t.Parallel()
	input := `{"cells": [{"code":"q","kind":"code"}, 42, {"unrelated":1}, null, {"code":"only code"}, {"code":7,"kind":"code"}]}`
	doc, err := service.NewCodec().Deserialize([]byte(input))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	want := domain.Document{Cells: []domain.Cell{domain.NewCodeCell("q")}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("surviving cells mismatch (-want +got):\n%s", diff)
	}
}

func TestDeserializeKindMapping(t *testing.T) {
	t.Parallel()
	input := `{"cells": [{"code":"a","kind":"markdown"},{"code":"b","kind":"unknown"},{"code":"c","kind":"code"},{"code":"d","kind":3}]}`
	doc, err := service.NewCodec().Deserialize([]byte(input))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	got := make([]domain.CellKind, 0, len(doc.Cells))
	for _, cell := range doc.Cells {
		got = append(got, cell.Kind)
	}
	want := []domain.CellKind{domain.CellKindMarkup, domain.CellKindMarkup, domain.CellKindCode, domain.CellKindMarkup}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}
