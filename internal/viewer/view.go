package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chrome is the rows taken by header, border, status and help.
const chrome = 6

func (m Model) viewport() Viewport {
	w, h := m.width-2, m.height-chrome
	if m.width == 0 && m.height == 0 {
		w, h = 80, 24
	}
	return Viewport{Row: m.row, Col: m.col, Width: max(1, w), Height: max(1, h)}
}

// View renders the current frame.
func (m Model) View() string {
	header := titleStyle.Render(m.opts.Title)
	if m.paused {
		header += dimStyle.Render("  [paused]")
	}

	var body string
	if m.frame.Map == nil {
		body = dimStyle.Render("waiting for city map...")
	} else {
		body = boxStyle.Render(Styled(m.frame.Map, m.frame.Agents, m.viewport()))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.statusLine(),
		m.help.View(m.keys),
	)
}

func (m Model) statusLine() string {
	st := m.frame.Status
	parts := []string{
		fmt.Sprintf("step %d", st.Step),
		fmt.Sprintf("agents %d", len(m.frame.Agents)),
		fmt.Sprintf("arrived %d", st.Arrived),
		fmt.Sprintf("snapshots %d", st.Snapshots),
	}
	if m.frame.Scene != nil {
		parts = append(parts, fmt.Sprintf("vertices %d", m.frame.Scene.VertexCount()))
	}
	line := dimStyle.Render(strings.Join(parts, " · "))
	if st.Failures > 0 {
		line += "  " + errStyle.Render(fmt.Sprintf("failures %d: %s", st.Failures, st.LastError))
	}
	return line
}
