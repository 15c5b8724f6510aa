package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.focus == focusList {
				m.focus = focusDetail
				m.table.Blur()
			} else {
				m.focus = focusList
				m.table.Focus()
			}
			return m, nil
		case "x":
			m.showHex = !m.showHex
			m.selected = -1 // Force re-render.
			m.syncDetail()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		m.detail.Width = msg.Width
		// List, its header, two borders and the footer line.
		m.detail.Height = max(1, msg.Height-listHeight-6)
		m.selected = -1
		m.syncDetail()
		return m, nil
	}

	if m.focus == focusDetail {
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	m.table, cmd = m.table.Update(msg)
	m.syncDetail()
	return m, cmd
}

// syncDetail renders the tree of the selected frame into the detail pane if
// the selection changed.
func (m *Model) syncDetail() {
	if len(m.results) == 0 {
		m.detail.SetContent("No frames.")
		return
	}
	cur := m.table.Cursor()
	if cur < 0 || cur >= len(m.results) || cur == m.selected {
		return
	}
	m.selected = cur
	key := treeKey{index: cur, hex: m.showHex}
	text, ok := m.rendered.Get(key)
	if !ok {
		res := m.results[cur]
		buf := m.fmt.FormatTree(nil, res)
		if m.showHex {
			buf = append(buf, '\n')
			buf = m.fmt.FormatSources(buf, res)
		}
		text = string(buf)
		m.rendered.Push(key, text)
	}
	m.detail.SetContent(text)
	m.detail.SetYOffset(0)
}
