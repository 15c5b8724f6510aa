// Package tui implements an interactive viewer of dissected frames: a frame
// list on top and the protocol tree of the selected frame below.
package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/internal/lrucache"
	"github.com/soypat/dissect/render"
)

const (
	listHeight  = 12
	cachedTrees = 32
)

type focus uint8

const (
	focusList focus = iota
	focusDetail
)

// Model is the bubbletea model of the viewer.
type Model struct {
	results  []*dispatch.Result
	footer   string
	table    table.Model
	detail   viewport.Model
	fmt      render.Formatter
	focus    focus
	showHex  bool
	selected int
	width    int
	height   int
	rendered lrucache.Cache[treeKey, string]
}

type treeKey struct {
	index int
	hex   bool
}

// NewModel returns a viewer of results. footer is shown below the panes,
// typically capture counters.
func NewModel(results []*dispatch.Result, footer string) Model {
	columns := []table.Column{
		{Title: "No.", Width: 6},
		{Title: "Time", Width: 11},
		{Title: "Source", Width: 6},
		{Title: "Dest", Width: 6},
		{Title: "Protocol", Width: 9},
		{Title: "Info", Width: 40},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows(results)),
		table.WithFocused(true),
		table.WithHeight(listHeight),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		results:  results,
		footer:   footer,
		table:    t,
		detail:   viewport.New(80, 20),
		fmt:      render.Formatter{Styles: render.DefaultStyles()},
		selected: -1,
		rendered: lrucache.New[treeKey, string](cachedTrees),
	}
	m.syncDetail()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Run shows the viewer on the terminal until the user quits.
func Run(results []*dispatch.Result, footer string) error {
	p := tea.NewProgram(NewModel(results, footer), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func rows(results []*dispatch.Result) []table.Row {
	var origin time.Time
	if len(results) > 0 {
		origin = results[0].Frame.Timestamp
	}
	rs := make([]table.Row, len(results))
	for i, res := range results {
		frm := &res.Frame
		rel := frm.Timestamp.Sub(origin).Seconds()
		rs[i] = table.Row{
			strconv.Itoa(frm.Number),
			strconv.FormatFloat(rel, 'f', 6, 64),
			strconv.Itoa(int(frm.SrcPort)),
			strconv.Itoa(int(frm.DstPort)),
			res.Columns.Protocol,
			res.Summary(),
		}
	}
	return rs
}
