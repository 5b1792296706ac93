package viewer

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles input and clock messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		m.frame = m.src.Frame(time.Time(msg))
		return m, m.frameTick()

	case pollTickMsg:
		if m.paused || m.polling {
			return m, m.pollTick()
		}
		m.polling = true
		return m, m.pollCmd()

	case pollDoneMsg:
		// Failures are recorded in the session status.
		m.polling = false
		return m, m.pollTick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
	case key.Matches(msg, m.keys.Up):
		m.row = max(0, m.row-1)
	case key.Matches(msg, m.keys.Down):
		m.row++
	case key.Matches(msg, m.keys.Left):
		m.col = max(0, m.col-1)
	case key.Matches(msg, m.keys.Right):
		m.col++
	}
	m.clampPan()
	return m, nil
}

func (m *Model) clampPan() {
	if m.frame.Map == nil {
		return
	}
	vp := m.viewport()
	m.row = min(m.row, max(0, m.frame.Map.Height()-vp.Height))
	m.col = min(m.col, max(0, m.frame.Map.Width()-vp.Width))
}
