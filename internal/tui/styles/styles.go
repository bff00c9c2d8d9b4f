// Package styles holds the lipgloss styles shared by the planner screens.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#5FAFAF") // Teal accent
	secondaryColor = lipgloss.Color("#666666") // Gray for secondary text
	successColor   = lipgloss.Color("#87AF87") // Muted sage for success
	errorColor     = lipgloss.Color("#AF5F5F") // Muted terracotta for errors
	warningColor   = lipgloss.Color("#D7AF5F") // Ochre for warnings

	// ProgressGradient are the ends of the progress bar gradient.
	ProgressGradient = [2]string{"#5FAFAF", "#87AF87"}

	// TitleStyle for screen titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// SubtleStyle for hints, addresses and ETAs
	SubtleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// SelectedStyle for the active stage and stop numbers
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// SectionStyle for the summary and feedback headers
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)

	// StatusBarStyle for the key hints at the bottom
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// BoxStyle frames the errand input
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(secondaryColor).
			Padding(1, 2)

	// SuccessStyle for completed stages and the online badge
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for ratings and location problems
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for failed generations
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)
