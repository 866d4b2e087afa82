package tui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Card faces
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Width(4).
			Align(lipgloss.Center)
	FaceDownStyle = CardStyle.Foreground(lipgloss.Color("241"))
	FaceUpStyle   = CardStyle.Foreground(lipgloss.Color("214")).Bold(true)
	MatchedStyle  = CardStyle.
			BorderForeground(lipgloss.Color("42")).
			Foreground(lipgloss.Color("42"))
	CursorStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("170")).
			Width(4).
			Align(lipgloss.Center)

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	HelpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
