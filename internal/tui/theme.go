package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/clienthealth/internal/scoring"
)

// Catppuccin Mocha palette
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(colorLavender)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	cursorStyle   = lipgloss.NewStyle().Background(colorSurface1).Foreground(colorText)
	dimStyle      = lipgloss.NewStyle().Foreground(colorOverlay1)
	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1).Padding(0, 1).Width(34)
	statusLineSty = lipgloss.NewStyle().Foreground(colorPeach)
)

var statusColors = map[scoring.Status]lipgloss.Color{
	scoring.Red:   colorRed,
	scoring.Amber: colorPeach,
	scoring.Green: colorGreen,
}

// StatusBadge renders a status word in its traffic-light colour.
func StatusBadge(s scoring.Status) string {
	c, ok := statusColors[s]
	if !ok {
		return dimStyle.Render(string(s))
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(string(s))
}
