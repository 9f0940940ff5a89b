package cli

import "github.com/charmbracelet/lipgloss"

var (
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	targetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)
