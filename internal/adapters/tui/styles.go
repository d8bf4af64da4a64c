package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorIris  = lipgloss.Color("#5D3FD3")
	colorSlate = lipgloss.Color("#667085")
	colorWhite = lipgloss.Color("#FFFFFF")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(colorIris).
			Foreground(colorWhite)

	pathStyle = lipgloss.NewStyle().
			Foreground(colorSlate)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorIris).
			Bold(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // Green

	helpStyle = lipgloss.NewStyle().
			Foreground(colorSlate).
			Faint(true)
)
