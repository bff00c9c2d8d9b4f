package components

import (
	"fmt"
	"strings"

	"github.com/pablasso/routeright/internal/tui/styles"
	"github.com/pablasso/routeright/internal/view"
)

const (
	filledChar = "■"
	emptyChar  = "□"
)

// Bar renders a plain percentage bar like: ■■■■□□□□ 50%
// It carries no styling so it is safe for non-terminal output.
type Bar struct {
	Percent int
	Width   int // character width of the bar portion
}

// NewBar creates a Bar.
func NewBar(percent, width int) Bar {
	return Bar{Percent: percent, Width: width}
}

// View returns the rendered bar.
func (b Bar) View() string {
	if b.Width <= 0 {
		return ""
	}

	percent := b.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := (percent * b.Width) / 100
	bar := strings.Repeat(filledChar, filled) + strings.Repeat(emptyChar, b.Width-filled)

	return fmt.Sprintf("%s %d%%", bar, percent)
}

// Step markers.
const (
	doneMark    = "✓"
	pendingMark = "○"
)

// Stepper renders the stage list on one line. active is drawn in place of
// the current step's marker, usually a spinner frame.
func Stepper(steps []view.Step, active string) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		switch s.State {
		case view.StepDone:
			parts = append(parts, styles.SuccessStyle.Render(doneMark+" "+s.Label))
		case view.StepActive:
			parts = append(parts, styles.SelectedStyle.Render(active+" "+s.Label))
		default:
			parts = append(parts, styles.SubtleStyle.Render(pendingMark+" "+s.Label))
		}
	}
	return strings.Join(parts, "  ")
}
