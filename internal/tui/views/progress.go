package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/tui/components"
	"github.com/pablasso/routeright/internal/tui/msgs"
	"github.com/pablasso/routeright/internal/tui/styles"
	"github.com/pablasso/routeright/internal/util"
	"github.com/pablasso/routeright/internal/view"
)

// tickMsg is used for elapsed time updates.
type tickMsg time.Time

// ProgressModel shows a running generation.
type ProgressModel struct {
	spinner spinner.Model
	bar     progress.Model

	current   view.View
	request   string
	startTime time.Time
	now       func() time.Time

	width  int
	height int
}

// NewProgressModel creates the progress view for a generation started from
// request.
func NewProgressModel(request string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	bar := progress.New(
		progress.WithGradient(styles.ProgressGradient[0], styles.ProgressGradient[1]),
		progress.WithoutPercentage(),
	)
	bar.Width = 40

	return ProgressModel{
		spinner:   s,
		bar:       bar,
		current:   view.View{Screen: view.ScreenProgress, Stage: plan.StageUnderstanding},
		request:   request,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tickCmd())
}

func (m ProgressModel) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, m.tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, func() tea.Msg { return msgs.CancelMsg{} }
		}
	}
	return m, nil
}

// SetView applies a new rendering decision for the running generation.
func (m *ProgressModel) SetView(v view.View) {
	m.current = v
}

// Stage returns the stage being shown.
func (m ProgressModel) Stage() plan.Stage {
	return m.current.Stage
}

// Percent returns the percentage being shown.
func (m ProgressModel) Percent() int {
	return m.current.Percent
}

// SetSize updates the model dimensions.
func (m *ProgressModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.bar.Width = min(max(width-20, 10), 60)
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	var b strings.Builder

	percent := min(max(m.current.Percent, 0), 100)

	var lines []string
	lines = append(lines,
		styles.TitleStyle.Render("Planning your route"),
		styles.SubtleStyle.Render(util.Truncate(m.request, max(m.width-4, 20))),
		"",
		components.Stepper(m.current.Steps(), m.spinner.View()),
		"",
		fmt.Sprintf("%s %3d%%", m.bar.ViewAs(float64(percent)/100), percent),
		"",
		m.spinner.View()+" "+m.current.Message,
		styles.SubtleStyle.Render("Elapsed "+formatDuration(m.now().Sub(m.startTime))),
	)

	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	contentHeight := lipgloss.Height(content)
	availableHeight := m.height - 1
	topPadding := max((availableHeight-contentHeight)/2, 0)

	b.WriteString(strings.Repeat("\n", topPadding))
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, content))

	bottomPadding := max(availableHeight-topPadding-contentHeight, 0)
	b.WriteString(strings.Repeat("\n", bottomPadding+1))
	b.WriteString(components.NewStatusBar("").Render(m.width, []string{"Esc Cancel", "Ctrl+C Quit"}))

	return b.String()
}

// formatDuration formats a duration as MM:SS or HH:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
