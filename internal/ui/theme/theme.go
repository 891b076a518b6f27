package theme

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha.
var (
	Mantle   = lipgloss.Color("#181825")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Red      = lipgloss.Color("#f38ba8")
	Peach    = lipgloss.Color("#fab387")
)

var (
	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)

	Succeeded = lipgloss.NewStyle().Foreground(Green)
	Failed    = lipgloss.NewStyle().Foreground(Red).Bold(true)

	// Bar backs the tab strip and the status line.
	Bar     = lipgloss.NewStyle().Background(Mantle)
	Spinner = lipgloss.NewStyle().Foreground(Lavender)
)

// RunState labels a finished cell.
func RunState(success bool) string {
	if success {
		return Succeeded.Render("succeeded")
	}
	return Failed.Render("failed")
}
