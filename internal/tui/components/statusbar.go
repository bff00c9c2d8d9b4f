package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/routeright/internal/tui/styles"
)

// StatusBar renders the bottom help bar: key hints on the left and an
// optional status (service health, location) on the right.
type StatusBar struct {
	Status string
}

// NewStatusBar creates a StatusBar showing status on the right.
func NewStatusBar(status string) StatusBar {
	return StatusBar{Status: status}
}

// Render returns the bar for width. Hints are joined with " • ". When the
// bar is too narrow for both, the status is dropped.
func (s StatusBar) Render(width int, hints []string) string {
	left := strings.Join(hints, " • ")
	if s.Status == "" {
		return styles.StatusBarStyle.Width(width).Render(left)
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(s.Status)
	if gap < 2 {
		return styles.StatusBarStyle.Width(width).Render(left)
	}
	return styles.StatusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + s.Status)
}
