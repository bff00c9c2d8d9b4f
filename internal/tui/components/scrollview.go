package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/routeright/internal/tui/styles"
)

// ScrollView shows a block of lines taller than the screen with a
// one-column scrollbar on the right.
type ScrollView struct {
	viewport viewport.Model
	lines    int
	width    int // total width including scrollbar
	height   int
}

// NewScrollView creates a ScrollView. width includes the scrollbar column.
func NewScrollView(width, height int) ScrollView {
	s := ScrollView{viewport: viewport.New(0, 0)}
	s.SetSize(width, height)
	return s
}

// SetSize updates the dimensions, keeping the scroll offset in range.
func (s *ScrollView) SetSize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 0 {
		height = 0
	}
	s.width, s.height = width, height
	s.viewport.Width = width - 1
	s.viewport.Height = height
	s.viewport.SetYOffset(s.viewport.YOffset)
}

// SetContent replaces the content and scrolls back to the top.
func (s *ScrollView) SetContent(content string) {
	s.lines = strings.Count(content, "\n") + 1
	s.viewport.SetContent(content)
	s.viewport.GotoTop()
}

// Update handles scrolling keys and the mouse wheel.
func (s ScrollView) Update(msg tea.Msg) (ScrollView, tea.Cmd) {
	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return s, cmd
}

// Scrollable reports whether the content is taller than the view.
func (s ScrollView) Scrollable() bool {
	return s.lines > s.height
}

// YOffset returns the first visible line.
func (s ScrollView) YOffset() int {
	return s.viewport.YOffset
}

// View renders the visible lines with the scrollbar.
func (s ScrollView) View() string {
	if s.height == 0 {
		return ""
	}
	content := lipgloss.NewStyle().Width(s.width - 1).Height(s.height).Render(s.viewport.View())
	bar := renderScrollbar(s.height, s.lines, s.viewport.YOffset)
	return lipgloss.JoinHorizontal(lipgloss.Top, content, bar)
}

// renderScrollbar draws a track with a thumb sized to the visible fraction.
// Content that fits renders as a blank gutter so the layout width is stable.
func renderScrollbar(viewHeight, contentHeight, yOffset int) string {
	if viewHeight <= 0 {
		return ""
	}
	if contentHeight <= viewHeight {
		return strings.Repeat(" \n", viewHeight-1) + " "
	}

	thumbSize := max(viewHeight*viewHeight/contentHeight, 1)
	maxOffset := contentHeight - viewHeight
	thumbMaxTop := viewHeight - thumbSize
	thumbTop := min(max(yOffset*thumbMaxTop/maxOffset, 0), thumbMaxTop)

	rows := make([]string, viewHeight)
	for i := range rows {
		if i >= thumbTop && i < thumbTop+thumbSize {
			rows[i] = styles.SelectedStyle.Render("█")
		} else {
			rows[i] = styles.SubtleStyle.Render("│")
		}
	}
	return strings.Join(rows, "\n")
}
