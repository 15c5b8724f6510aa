package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/soypat/dissect"
)

// Styles decorate rendered text. The zero value renders plain text.
type Styles struct {
	Protocol  lipgloss.Style
	Generated lipgloss.Style
	Offset    lipgloss.Style
	Column    lipgloss.Style
	// Severity styles anomaly annotations, indexed by [dissect.Severity].
	Severity [dissect.SeverityError + 1]lipgloss.Style
	styled   bool
}

// DefaultStyles returns the styles used on color terminals.
func DefaultStyles() *Styles {
	s := &Styles{
		Protocol:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Generated: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Offset:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Column:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		styled:    true,
	}
	s.Severity[dissect.SeverityChat] = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	s.Severity[dissect.SeverityNote] = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	s.Severity[dissect.SeverityWarn] = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	s.Severity[dissect.SeverityError] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	return s
}

func (s *Styles) render(st *lipgloss.Style, text string) string {
	if s == nil || !s.styled {
		return text
	}
	return st.Render(text)
}

func (s *Styles) protocol(text string) string {
	if s == nil {
		return text
	}
	return s.render(&s.Protocol, text)
}

func (s *Styles) generated(text string) string {
	if s == nil {
		return text
	}
	return s.render(&s.Generated, text)
}

func (s *Styles) offset(text string) string {
	if s == nil {
		return text
	}
	return s.render(&s.Offset, text)
}

func (s *Styles) column(text string) string {
	if s == nil {
		return text
	}
	return s.render(&s.Column, text)
}

func (s *Styles) severity(sev dissect.Severity, text string) string {
	if s == nil || int(sev) >= len(s.Severity) {
		return text
	}
	return s.render(&s.Severity[sev], text)
}
