package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	title := titleStyle.Render(fmt.Sprintf("icqdump - %d frames", len(m.results)))
	list, detail := paneStyle, focusedPaneStyle
	if m.focus == focusList {
		list, detail = focusedPaneStyle, paneStyle
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		list.Render(m.table.View()),
		detail.Render(m.detail.View()),
	)
	help := "tab: switch pane • x: toggle hex • q: quit"
	if m.footer != "" {
		help = m.footer + "\n" + help
	}
	return body + "\n" + helpStyle.Render(help)
}
