package viewer

import "github.com/charmbracelet/lipgloss"

// Styles
var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#7C3AED")
	borderCol = lipgloss.Color("#243141")

	titleStyle = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(baseDimFg)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	buildingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	laneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563"))
	lightStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	greenStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	destStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#38BDF8")).Bold(true)
	agentStyle    = lipgloss.NewStyle().Foreground(baseFg).Background(lipgloss.Color("#16A34A")).Bold(true)
)
