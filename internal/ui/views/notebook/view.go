package notebook

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	executiondto "ghnb/internal/modules/execution/dto"
	notebookdto "ghnb/internal/modules/notebook/dto"
	"ghnb/internal/ui/theme"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type NotebookPort interface {
	Open(ctx context.Context, path string) (notebookdto.NotebookOutput, error)
}

type RunPort interface {
	Run(ctx context.Context, path string, cells []int, onResult func(executiondto.CellResult)) (executiondto.RunOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type LoadedMsg struct {
	Notebook notebookdto.NotebookOutput
	Err      error
}

// CellDoneMsg carries one finished cell of a running batch.
type CellDoneMsg struct {
	Result executiondto.CellResult
}

// RunDoneMsg ends a batch.
type RunDoneMsg struct {
	Out executiondto.RunOutput
	Err error
}

// ─── list item ───────────────────────────────────────────────────────────────

type cellItem struct {
	cell    notebookdto.CellOutput
	result  *executiondto.CellResult
	running bool
}

func (i cellItem) Title() string {
	first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(i.cell.Content), "\n", 2)[0])
	if first == "" {
		first = "(empty)"
	}
	return fmt.Sprintf("[%d] %s", i.cell.Index, first)
}

func (i cellItem) Description() string {
	switch {
	case i.running:
		return i.cell.Kind + "  running"
	case i.result == nil:
		return i.cell.Kind
	case i.result.Success:
		return fmt.Sprintf("%s  ✓ %s", i.cell.Kind, i.result.Duration())
	default:
		return fmt.Sprintf("%s  ✗ %s", i.cell.Kind, i.result.Duration())
	}
}

func (i cellItem) FilterValue() string { return i.cell.Content }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	notebooks NotebookPort
	runner    RunPort
	path      string
	list      list.Model
	preview   viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer
	loading   bool
	running   bool
	results   map[int]executiondto.CellResult
	updates   chan tea.Msg
	cancelRun context.CancelFunc
	width     int
	height    int
}

func New(path string, notebooks NotebookPort, runner RunPort) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Cells"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(0),
	)

	return Model{
		notebooks: notebooks,
		runner:    runner,
		path:      path,
		list:      l,
		preview:   vp,
		spinner:   sp,
		renderer:  r,
		loading:   true,
		results:   map[int]executiondto.CellResult{},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Reload(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.preview.SetContent(m.renderSelected())

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Cells — " + msg.Err.Error()
			return m, nil
		}
		m.list.Title = "Cells — " + msg.Notebook.Path
		cmds = append(cmds, m.list.SetItems(m.items(msg.Notebook.Cells)))
		m.preview.SetContent(m.renderSelected())

	case CellDoneMsg:
		m.results[msg.Result.CellIndex] = msg.Result
		m.refreshItems()
		m.preview.SetContent(m.renderSelected())
		cmds = append(cmds, m.waitForUpdate())

	case RunDoneMsg:
		m.running = false
		m.updates = nil
		m.Stop()
		m.refreshItems()
		m.preview.SetContent(m.renderSelected())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			m.preview.SetContent(m.renderSelected())
			m.preview.GotoTop()
		}

		var vCmd tea.Cmd
		m.preview, vCmd = m.preview.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Opening notebook…")
	}

	listW := m.width * 4 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	preview := m.preview.View()
	if m.running {
		preview = m.spinner.View() + " running…\n" + preview
	}
	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(preview)

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// Reload re-reads the notebook from disk.
func (m Model) Reload() tea.Cmd {
	return func() tea.Msg {
		nb, err := m.notebooks.Open(context.Background(), m.path)
		return LoadedMsg{Notebook: nb, Err: err}
	}
}

// RunSelected executes the selected code cell.
func (m *Model) RunSelected() tea.Cmd {
	item, ok := m.list.SelectedItem().(cellItem)
	if !ok || item.cell.Kind != "code" {
		return nil
	}
	return m.run([]int{item.cell.Index})
}

// RunAll executes every code cell in order.
func (m *Model) RunAll() tea.Cmd {
	return m.run(nil)
}

func (m Model) Running() bool { return m.running }

// Stop cancels the batch in flight, if any. Cells not yet sent are skipped.
func (m *Model) Stop() {
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// ─── private ─────────────────────────────────────────────────────────────────

// run streams per-cell results through updates so each finished cell shows
// up before the batch ends.
func (m *Model) run(cells []int) tea.Cmd {
	if m.running {
		return nil
	}
	m.running = true
	m.refreshItems()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel
	updates := make(chan tea.Msg, 1)
	m.updates = updates
	path := m.path
	runner := m.runner
	start := func() tea.Msg {
		go streamRun(ctx, runner, path, cells, updates)
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
	return tea.Batch(start, m.spinner.Tick)
}

// streamRun executes the batch and forwards its progress to updates until ctx
// is cancelled. updates is closed on return.
func streamRun(ctx context.Context, runner RunPort, path string, cells []int, updates chan<- tea.Msg) {
	defer close(updates)
	send := func(msg tea.Msg) {
		select {
		case updates <- msg:
		case <-ctx.Done():
		}
	}
	out, err := runner.Run(ctx, path, cells, func(result executiondto.CellResult) {
		send(CellDoneMsg{Result: result})
	})
	send(RunDoneMsg{Out: out, Err: err})
}

func (m Model) waitForUpdate() tea.Cmd {
	updates := m.updates
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) resize() {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.preview.Width = detailW - 4
	m.preview.Height = m.height - 4
	if r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(m.preview.Width),
	); err == nil {
		m.renderer = r
	}
}

func (m Model) items(cells []notebookdto.CellOutput) []list.Item {
	items := make([]list.Item, len(cells))
	for i, cell := range cells {
		items[i] = m.item(cell)
	}
	return items
}

func (m Model) item(cell notebookdto.CellOutput) cellItem {
	item := cellItem{cell: cell, running: m.running && cell.Kind == "code"}
	if result, ok := m.results[cell.Index]; ok {
		item.result = &result
		item.running = false
	}
	return item
}

func (m *Model) refreshItems() {
	items := m.list.Items()
	for i, it := range items {
		if ci, ok := it.(cellItem); ok {
			items[i] = m.item(ci.cell)
		}
	}
	m.list.SetItems(items)
}

func (m Model) renderSelected() string {
	item, ok := m.list.SelectedItem().(cellItem)
	if !ok {
		return theme.Muted.Render("Empty notebook")
	}
	if item.cell.Kind != "code" {
		return m.renderMarkdown(item.cell.Content)
	}
	var sb strings.Builder
	sb.WriteString(m.renderMarkdown("```graphql\n" + item.cell.Content + "\n```"))
	if item.result != nil {
		sb.WriteString(fmt.Sprintf("%s %s in %s\n\n", theme.Title.Render("Output"), theme.RunState(item.result.Success), item.result.Duration()))
		sb.WriteString(m.renderMarkdown("```json\n" + item.result.Output + "\n```"))
	}
	sb.WriteString("\n" + theme.Muted.Render("r: run cell  R: run all"))
	return sb.String()
}

func (m Model) renderMarkdown(content string) string {
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}
