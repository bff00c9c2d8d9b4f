package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pablasso/routeright/internal/feedback"
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/tui/components"
	"github.com/pablasso/routeright/internal/tui/msgs"
	"github.com/pablasso/routeright/internal/tui/styles"
)

// feedbackState tracks the rating form below the route.
type feedbackState int

const (
	feedbackOpen feedbackState = iota
	feedbackSending
	feedbackSent
)

// ResultsModel shows a finished plan and collects a rating for it.
type ResultsModel struct {
	plan   *plan.Plan
	stops  components.ScrollView
	health string

	rating   int
	comments textinput.Model
	editing  bool
	state    feedbackState
	notice   string // feedback error shown under the form

	width  int
	height int
}

// NewResultsModel creates the results view for p.
func NewResultsModel(p *plan.Plan) ResultsModel {
	ti := textinput.New()
	ti.Placeholder = "Anything we should know? (optional)"
	ti.CharLimit = 500
	ti.Width = 50

	m := ResultsModel{
		plan:     p,
		stops:    components.NewScrollView(80, 10),
		comments: ti,
	}
	m.stops.SetContent(renderStops(p))
	return m
}

// Init implements tea.Model.
func (m ResultsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ResultsModel) Update(msg tea.Msg) (ResultsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.editing {
			return m.updateComments(msg)
		}

		switch key := msg.String(); key {
		case "q":
			return m, tea.Quit
		case "n", "esc":
			return m, func() tea.Msg { return msgs.NewPlanMsg{} }
		case "1", "2", "3", "4", "5":
			if m.state == feedbackOpen {
				m.rating = int(key[0] - '0')
				m.notice = ""
			}
			return m, nil
		case "c":
			if m.state == feedbackOpen {
				m.editing = true
				return m, m.comments.Focus()
			}
			return m, nil
		case "s", "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.stops, cmd = m.stops.Update(msg)
	return m, cmd
}

func (m ResultsModel) updateComments(msg tea.KeyMsg) (ResultsModel, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.editing = false
		m.comments.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.comments, cmd = m.comments.Update(msg)
	return m, cmd
}

func (m ResultsModel) submit() (ResultsModel, tea.Cmd) {
	if m.state != feedbackOpen {
		return m, nil
	}
	if m.rating < feedback.MinRating || m.rating > feedback.MaxRating {
		m.notice = plan.UserMessage(feedback.ErrNoRating)
		return m, nil
	}
	m.state = feedbackSending
	m.notice = ""
	rating, comments := m.rating, m.comments.Value()
	return m, func() tea.Msg {
		return msgs.SubmitFeedbackMsg{Rating: rating, Comments: comments}
	}
}

// SetFeedbackResult records the outcome of a submission. A failure reopens
// the form so the user can retry.
func (m *ResultsModel) SetFeedbackResult(err error) {
	if err != nil {
		m.state = feedbackOpen
		m.notice = plan.UserMessage(err)
		return
	}
	m.state = feedbackSent
	m.notice = ""
}

// Plan returns the plan being shown.
func (m ResultsModel) Plan() *plan.Plan {
	return m.plan
}

// Rating returns the selected rating, zero when none is picked.
func (m ResultsModel) Rating() int {
	return m.rating
}

// FeedbackSent reports whether the rating was accepted.
func (m ResultsModel) FeedbackSent() bool {
	return m.state == feedbackSent
}

// Editing reports whether keystrokes go to the comment field.
func (m ResultsModel) Editing() bool {
	return m.editing
}

// SetHealth sets the service status shown in the status bar.
func (m *ResultsModel) SetHealth(status string) {
	m.health = status
}

// SetSize updates the model dimensions.
func (m *ResultsModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	// title(2) + summary(4) + feedback(6) + status bar(1)
	m.stops.SetSize(max(width-4, 10), max(height-13, 3))
	if w := width - 12; w > 20 {
		m.comments.Width = min(w, 80)
	}
}

// View implements tea.Model.
func (m ResultsModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Your route · %d stops", len(m.plan.Stops))))
	b.WriteString("\n")
	b.WriteString(indent(m.stops.View(), 2))
	b.WriteString("\n\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n")
	b.WriteString(m.renderFeedback())

	content := b.String()
	padding := max(m.height-1-strings.Count(content, "\n")-1, 0)

	hints := []string{"1-5 Rate", "C Comment", "S Send", "N New plan", "Q Quit"}
	if m.editing {
		hints = []string{"Enter Done", "Esc Done"}
	}
	return content + strings.Repeat("\n", padding+1) +
		components.NewStatusBar(m.health).Render(m.width, hints)
}

func (m ResultsModel) renderSummary() string {
	var lines []string
	line := styles.SectionStyle.Render("Total time ") + m.plan.TotalTime
	if m.plan.TotalDistanceKm != nil {
		line += styles.SectionStyle.Render("   Distance ") + fmt.Sprintf("%.1f km", *m.plan.TotalDistanceKm)
	}
	lines = append(lines, "  "+line)
	if m.plan.MapPreviewURL != "" {
		lines = append(lines, "  "+styles.SectionStyle.Render("Map ")+styles.SubtleStyle.Render(m.plan.MapPreviewURL))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m ResultsModel) renderFeedback() string {
	var lines []string
	lines = append(lines, "  "+styles.SectionStyle.Render("How was this route?"))

	switch m.state {
	case feedbackSent:
		lines = append(lines, "  "+styles.SuccessStyle.Render("✓ Thanks for your feedback!"))
		return strings.Join(lines, "\n")
	case feedbackSending:
		lines = append(lines, "  "+styles.SubtleStyle.Render("Sending feedback..."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "  "+renderStars(m.rating))
	if m.editing || m.comments.Value() != "" {
		lines = append(lines, "  "+m.comments.View())
	}
	if m.notice != "" {
		lines = append(lines, "  "+styles.ErrorStyle.Render("✗ "+m.notice))
	}
	return strings.Join(lines, "\n")
}

func renderStars(rating int) string {
	var b strings.Builder
	for i := feedback.MinRating; i <= feedback.MaxRating; i++ {
		if i <= rating {
			b.WriteString(styles.SelectedStyle.Render("★"))
		} else {
			b.WriteString(styles.SubtleStyle.Render("☆"))
		}
		b.WriteString(" ")
	}
	if rating == 0 {
		b.WriteString(styles.SubtleStyle.Render("press 1-5"))
	}
	return strings.TrimRight(b.String(), " ")
}

// renderStops lists the stops in visiting order.
func renderStops(p *plan.Plan) string {
	if p == nil || len(p.Stops) == 0 {
		return styles.SubtleStyle.Render("No stops in this plan.")
	}
	var lines []string
	for i, s := range p.Stops {
		header := fmt.Sprintf("%d. %s %s", i+1, s.CategoryIcon(), styles.SelectedStyle.Render(s.Name))
		if s.Rating != nil {
			header += styles.SubtleStyle.Render(fmt.Sprintf("  ★ %.1f", *s.Rating))
		}
		lines = append(lines, header)
		if s.Address != "" {
			lines = append(lines, "   "+s.Address)
		}
		if s.ETA != "" {
			lines = append(lines, "   "+styles.SubtleStyle.Render("ETA "+s.ETA))
		}
		if s.MapsURL != "" {
			lines = append(lines, "   "+styles.SubtleStyle.Render(s.MapsURL))
		}
		if i < len(p.Stops)-1 {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
