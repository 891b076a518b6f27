package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	executiondto "ghnb/internal/modules/execution/dto"
	"ghnb/internal/ui/theme"
)

const pageSize = 50

// Port is the minimal interface this view needs from the execution use-case.
type Port interface {
	History(ctx context.Context, path string, limit int) ([]executiondto.HistoryEntry, error)
}

// LoadedMsg is sent when the run history has been read (or failed to).
type LoadedMsg struct {
	Entries []executiondto.HistoryEntry
	Err     error
}

// Model renders the recent runs of one notebook as a Markdown table.
type Model struct {
	port     Port
	path     string
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	entries  []executiondto.HistoryEntry
	now      func() time.Time
	loading  bool
	width    int
	height   int
}

func New(path string, port Port) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(0),
	)

	return Model{
		port:     port,
		path:     path,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		renderer: r,
		now:      time.Now,
	}
}

// Init is a no-op: history loads when the tab is first shown.
func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.viewport.SetContent(m.renderContent())

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.viewport.SetContent(theme.Hot.Render("Error: " + msg.Err.Error()))
			return m, nil
		}
		m.entries = msg.Entries
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var vCmd tea.Cmd
	m.viewport, vCmd = m.viewport.Update(msg)
	cmds = append(cmds, vCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	header := theme.Title.Render("History") + theme.Muted.Render("  "+m.path+"  ↑/↓: scroll") + "\n"
	if m.loading {
		return lipgloss.JoinVertical(lipgloss.Left, header,
			lipgloss.Place(m.width, max(m.height-2, 1), lipgloss.Center, lipgloss.Center, m.spinner.View()+" Loading history…"))
	}
	footer := theme.Muted.Render(fmt.Sprintf("%.0f%%", m.viewport.ScrollPercent()*100))
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}

// Refresh reloads the history. The returned Cmd produces a LoadedMsg.
func (m *Model) Refresh() tea.Cmd {
	m.loading = true
	port, path := m.port, m.path
	load := func() tea.Msg {
		entries, err := port.History(context.Background(), path, pageSize)
		return LoadedMsg{Entries: entries, Err: err}
	}
	return tea.Batch(load, m.spinner.Tick)
}

func (m *Model) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-3, 1)
	if r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(m.width),
	); err == nil {
		m.renderer = r
	}
}

func (m Model) renderContent() string {
	if len(m.entries) == 0 {
		return theme.Muted.Render("(no runs yet)")
	}
	md := RenderMarkdown(m.entries, m.now())
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(md); err == nil {
			return rendered
		}
	}
	return md
}

// RenderMarkdown formats entries as a Markdown table, newest first.
func RenderMarkdown(entries []executiondto.HistoryEntry, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("| cell | result | started | took | run |\n|---|---|---|---|---|\n")
	for _, e := range entries {
		result := "failed"
		if e.Success {
			result = "ok"
		}
		run := e.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | `%s` |\n",
			e.CellIndex, result, humanize.RelTime(e.StartedAt, now, "ago", "from now"), e.EndedAt.Sub(e.StartedAt), run)
	}
	return sb.String()
}
