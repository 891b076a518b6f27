package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	executiondto "ghnb/internal/modules/execution/dto"
	notebookdto "ghnb/internal/modules/notebook/dto"
	"ghnb/internal/ui/components"
	"ghnb/internal/ui/theme"
	historyview "ghnb/internal/ui/views/history"
	notebookview "ghnb/internal/ui/views/notebook"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type notebookPort interface {
	Open(ctx context.Context, path string) (notebookdto.NotebookOutput, error)
	AppendCell(ctx context.Context, path string, markdown bool, content string) (notebookdto.NotebookOutput, error)
	Export(ctx context.Context, path, outPath string) (notebookdto.ExportOutput, error)
}

type executionPort interface {
	Run(ctx context.Context, path string, cells []int, onResult func(executiondto.CellResult)) (executiondto.RunOutput, error)
	History(ctx context.Context, path string, limit int) ([]executiondto.HistoryEntry, error)
	Status(ctx context.Context) (executiondto.StatusOutput, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabNotebook tabID = iota
	tabHistory
	tabCount
)

var tabLabels = [tabCount]string{
	"Notebook", "History",
}

// ─── async messages ───────────────────────────────────────────────────────────

// DeviceCodeMsg asks the user to finish an interactive sign-in.
type DeviceCodeMsg struct {
	UserCode        string
	VerificationURI string
}

type statusLoadedMsg struct {
	status executiondto.StatusOutput
	err    error
}

type cellAddedMsg struct {
	err error
}

type exportedMsg struct {
	out notebookdto.ExportOutput
	err error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	PrevTab key.Binding
	Run     key.Binding
	RunAll  key.Binding
	Reload  key.Binding
	Palette key.Binding
	Help    key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous tab")),
		Run:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run cell")),
		RunAll:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "run all")),
		Reload:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "commands")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.RunAll, k.Palette, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.RunAll, k.Reload},
		{k.Tab, k.PrevTab, k.Palette},
		{k.Help, k.Back, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, the auth status
// line, the help overlay and the command palette; rendering is delegated to
// the sub-views.
type Model struct {
	path string

	notebooks notebookPort
	execution executionPort

	nbView      notebookview.Model
	historyView historyview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	auth      executiondto.StatusOutput
	status    string
	width     int
	height    int
}

// ─── constructor ─────────────────────────────────────────────────────────────

func NewModel(path string, notebooks notebookPort, execution executionPort) Model {
	return Model{
		path:        path,
		notebooks:   notebooks,
		execution:   execution,
		nbView:      notebookview.New(path, notebooks, execution),
		historyView: historyview.New(path, execution),
		activeTab:   tabNotebook,
		keys:        defaultKeys(),
		help:        help.New(),
		palette:     components.NewPalette(paletteCommands),
		status:      "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.nbView.Init(),
		m.historyView.Init(),
		m.loadStatusCmd(),
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()

	case DeviceCodeMsg:
		m.status = fmt.Sprintf("sign in: open %s and enter %s", msg.VerificationURI, msg.UserCode)
		return m, nil

	case statusLoadedMsg:
		if msg.err != nil {
			m.status = "auth status: " + msg.err.Error()
		} else {
			m.auth = msg.status
		}
		return m, nil

	case cellAddedMsg:
		if msg.err != nil {
			m.status = "add cell: " + msg.err.Error()
			return m, nil
		}
		m.status = "cell added"
		return m, m.nbView.Reload()

	case exportedMsg:
		if msg.err != nil {
			m.status = "export: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("exported %d cells to %s", msg.out.Cells, msg.out.Path)
		}
		return m, nil

	// Run progress always goes to the notebook view, whichever tab is shown.
	case notebookview.CellDoneMsg, notebookview.RunDoneMsg:
		if done, ok := msg.(notebookview.RunDoneMsg); ok {
			if done.Err != nil {
				m.status = "run: " + done.Err.Error()
			} else {
				m.status = fmt.Sprintf("run %d ok, %d failed", done.Out.Succeeded, done.Out.Failed)
			}
			cmds = append(cmds, m.loadStatusCmd())
		}
		var cmd tea.Cmd
		m.nbView, cmd = m.nbView.Update(msg)
		return m, tea.Batch(append(cmds, cmd)...)

	case historyview.LoadedMsg:
		var cmd tea.Cmd
		m.historyView, cmd = m.historyView.Update(msg)
		return m, cmd

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"

	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, m.keys.Help, m.keys.Back) {
				m.showHelp = false
			}
			return m, nil
		}
		if m.activeTab == tabNotebook && m.nbView.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.nbView.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			return m.switchTab((m.activeTab + 1) % tabCount)
		case key.Matches(msg, m.keys.PrevTab):
			return m.switchTab((m.activeTab + tabCount - 1) % tabCount)
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil
		case key.Matches(msg, m.keys.Palette):
			cmd := m.palette.Open()
			return m, cmd
		case key.Matches(msg, m.keys.Run) && m.activeTab == tabNotebook:
			m.status = "running cell"
			cmd := m.nbView.RunSelected()
			return m, cmd
		case key.Matches(msg, m.keys.RunAll) && m.activeTab == tabNotebook:
			m.status = "running all cells"
			cmd := m.nbView.RunAll()
			return m, cmd
		case key.Matches(msg, m.keys.Reload):
			if m.activeTab == tabHistory {
				cmd := m.historyView.Refresh()
				return m, cmd
			}
			return m, m.nbView.Reload()
		}
	}

	// Propagate the message to the active tab's sub-view.
	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabNotebook:
		m.nbView, tabCmd = m.nbView.Update(msg)
	case tabHistory:
		m.historyView, tabCmd = m.historyView.Update(msg)
	}
	cmds = append(cmds, tabCmd)

	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	tabBarH := lipgloss.Height(tabBar)
	statusBarH := lipgloss.Height(statusBar)

	contentH := m.height - tabBarH - statusBarH
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.activeView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabNotebook:
		return m.nbView.View()
	case tabHistory:
		return m.historyView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "ghnb  " + strings.Join(parts, sep)
	return theme.Bar.Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.auth.State != "" {
		auth := m.auth.State
		if m.auth.Account != "" {
			auth += " as " + m.auth.Account
		}
		left = theme.Hot.Render("● "+auth) + "  " + left
	}
	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + theme.Bar.Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

// paletteCommands must stay in sync with the switch in executePalette.
var paletteCommands = []components.Command{
	{Name: "run", Help: "run the selected cell"},
	{Name: "run:all", Help: "run every GraphQL cell in order"},
	{Name: "cell:add", Args: "<graphql>", Help: "append a GraphQL cell"},
	{Name: "cell:add-md", Args: "<markdown>", Help: "append a markdown cell"},
	{Name: "reload", Help: "re-read the notebook from disk"},
	{Name: "export", Args: "[out.md]", Help: "write the notebook as Markdown"},
	{Name: "history", Help: "show recent runs"},
	{Name: "auth:status", Help: "show the GitHub session"},
}

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)
	rest := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))

	switch parts[0] {
	case "run":
		m.activeTab = tabNotebook
		cmd := m.nbView.RunSelected()
		return m, cmd

	case "run:all":
		m.activeTab = tabNotebook
		cmd := m.nbView.RunAll()
		return m, cmd

	case "cell:add", "cell:add-md":
		if rest == "" {
			m.status = "usage: " + parts[0] + " <text>"
			return m, nil
		}
		return m, m.appendCellCmd(parts[0] == "cell:add-md", rest)

	case "reload":
		return m, m.nbView.Reload()

	case "export":
		return m, m.exportCmd(rest)

	case "history":
		return m.switchTab(tabHistory)

	case "auth:status":
		return m, m.loadStatusCmd()

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m Model) switchTab(tab tabID) (tea.Model, tea.Cmd) {
	m.activeTab = tab
	if tab == tabHistory {
		cmd := m.historyView.Refresh()
		return m, cmd
	}
	return m, nil
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.nbView, _ = m.nbView.Update(sz)
	m.historyView, _ = m.historyView.Update(sz)
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) loadStatusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.execution.Status(context.Background())
		return statusLoadedMsg{status: status, err: err}
	}
}

func (m Model) appendCellCmd(markdown bool, content string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.notebooks.AppendCell(context.Background(), m.path, markdown, content)
		return cellAddedMsg{err: err}
	}
}

func (m Model) exportCmd(outPath string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.notebooks.Export(context.Background(), m.path, outPath)
		return exportedMsg{out: out, err: err}
	}
}
