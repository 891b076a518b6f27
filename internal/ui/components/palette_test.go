package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

var testCommands = []Command{
	{Name: "run", Help: "run the selected cell"},
	{Name: "run:all", Help: "run every code cell"},
	{Name: "reload", Help: "re-read the notebook"},
	{Name: "export", Args: "[out.md]", Help: "write Markdown"},
}

func typeInto(p Palette, s string) Palette {
	for _, r := range s {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return p
}

func TestPaletteMatchingAndCompletion(t *testing.T) {
	t.Parallel()
	p := NewPalette(testCommands)
	p.Open()
	p = typeInto(p, "re")

	matches := p.Matching()
	if len(matches) != 1 || matches[0].Name != "reload" {
		t.Fatalf("unexpected matches for %q: %+v", "re", matches)
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyTab})
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if p.Visible() {
		t.Fatalf("palette should close on enter")
	}
	msg, ok := cmd().(PaletteSubmitMsg)
	if !ok || msg.Input != "reload" {
		t.Fatalf("unexpected submit: %#v", cmd())
	}
}

func TestPaletteMatchesOnCommandWordOnly(t *testing.T) {
	t.Parallel()
	p := NewPalette(testCommands)
	p.Open()
	p = typeInto(p, "export notes.md")

	matches := p.Matching()
	if len(matches) != 1 || matches[0].Name != "export" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestPaletteEscCancels(t *testing.T) {
	t.Parallel()
	p := NewPalette(testCommands)
	p.Open()
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.Visible() {
		t.Fatalf("palette should close on esc")
	}
	if _, ok := cmd().(PaletteCancelMsg); !ok {
		t.Fatalf("expected cancel message")
	}
}
