package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fff"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75"))
	cursorStyle = lipgloss.NewStyle().Background(lipgloss.Color("#444"))

	modeStyles = map[string]lipgloss.Style{
		"idle":      lipgloss.NewStyle().Foreground(lipgloss.Color("#888")),
		"recording": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e06c75")),
		"playing":   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98c379")),
	}

	modeLabels = map[string]string{
		"idle":      "IDLE",
		"recording": "● REC",
		"playing":   "▶ PLAY",
	}
)
