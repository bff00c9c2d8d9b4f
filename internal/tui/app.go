package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/routeright/internal/geo"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/session"
	"github.com/pablasso/routeright/internal/tui/msgs"
	"github.com/pablasso/routeright/internal/tui/styles"
	"github.com/pablasso/routeright/internal/tui/views"
	"github.com/pablasso/routeright/internal/view"
)

// Minimum terminal dimensions for the TUI to render properly.
const (
	MinTerminalWidth  = 60
	MinTerminalHeight = 15
)

// errFeedbackUnavailable is reported when no feedback service is configured.
var errFeedbackUnavailable = plan.NewError(plan.KindUnknown, "Feedback is not available right now.", nil)

// Model is the main Bubble Tea model. It owns no session state of its own:
// every screen change follows a snapshot from the Generator.
type Model struct {
	ctx    context.Context
	opts   Options
	logger *logging.Logger

	screen   view.Screen
	input    views.InputModel
	progress views.ProgressModel
	results  views.ResultsModel

	sessions    <-chan session.Session
	unsubscribe func()
	generation  uint64
	health      string

	width  int
	height int
}

// New creates the root model and subscribes it to the generator.
func New(ctx context.Context, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	m := Model{
		ctx:         ctx,
		opts:        opts,
		logger:      logger.WithComponent("tui"),
		screen:      view.ScreenInput,
		input:       views.NewInputModel(),
		unsubscribe: func() {},
	}
	if opts.InitialText != "" {
		m.input.SetValue(opts.InitialText)
	}
	if opts.Generator != nil {
		m.sessions, m.unsubscribe = opts.Generator.Subscribe()
	}
	return m
}

// Run starts the TUI application and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Generator == nil {
		return errors.New("tui: no generator configured")
	}

	m := New(ctx, opts)
	defer m.unsubscribe()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.input.Init(),
		waitForSession(m.sessions),
		m.locate(),
		m.probeHealth(),
	)
}

// waitForSession reads the next snapshot from the subscription.
func waitForSession(ch <-chan session.Session) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return msgs.SessionClosedMsg{}
		}
		return msgs.SessionMsg{Session: s}
	}
}

func (m Model) locate() tea.Cmd {
	locator := m.opts.Locator
	ctx := m.ctx
	return func() tea.Msg {
		if locator == nil {
			return msgs.LocationMsg{Err: &geo.LocationError{Reason: geo.Unavailable}}
		}
		lctx, cancel := context.WithTimeout(ctx, geo.DefaultTimeout)
		defer cancel()
		coords, err := locator.CurrentLocation(lctx)
		return msgs.LocationMsg{Coords: coords, Err: err}
	}
}

func (m Model) probeHealth() tea.Cmd {
	checker := m.opts.Health
	if checker == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		h, err := checker.Health(ctx)
		return msgs.HealthMsg{Health: h, Err: err}
	}
}

func (m Model) generate(text string) tea.Cmd {
	coords, _ := m.input.Location()
	req := plan.PlanRequest{FreeText: text, Lat: coords.Lat, Lng: coords.Lng}
	gen := m.opts.Generator
	ctx := m.ctx
	return func() tea.Msg {
		if _, err := gen.Generate(ctx, req); err != nil {
			return msgs.GenerateFailedMsg{Err: err}
		}
		return nil
	}
}

func (m Model) submitFeedback(rating int, comments string) tea.Cmd {
	svc := m.opts.Feedback
	p := m.results.Plan()
	ctx := m.ctx
	return func() tea.Msg {
		if svc == nil {
			return msgs.FeedbackSentMsg{Err: errFeedbackUnavailable}
		}
		_, err := svc.Submit(ctx, p, rating, comments)
		return msgs.FeedbackSentMsg{Err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetSize(msg.Width, msg.Height)
		m.progress.SetSize(msg.Width, msg.Height)
		m.results.SetSize(msg.Width, msg.Height)
		return m, nil

	case msgs.SessionMsg:
		var cmd tea.Cmd
		m, cmd = m.applySession(msg.Session)
		return m, tea.Batch(cmd, waitForSession(m.sessions))

	case msgs.SessionClosedMsg:
		m.logger.Debug("session subscription closed")
		return m, tea.Quit

	case msgs.SubmitMsg:
		m.logger.Debug("submitting errands", "chars", len(msg.Text))
		return m, m.generate(msg.Text)

	case msgs.GenerateFailedMsg:
		m.logger.Warn("generation rejected", "error", msg.Err)
		m.input.SetError(plan.UserMessage(msg.Err))
		return m, nil

	case msgs.CancelMsg:
		m.logger.Info("generation cancelled by user", "generation", m.generation)
		m.opts.Generator.Reset()
		return m, nil

	case msgs.NewPlanMsg:
		m.opts.Generator.Reset()
		return m, nil

	case msgs.LocateMsg:
		if f, ok := m.opts.Locator.(interface{ Forget() }); ok {
			f.Forget()
		}
		return m, m.locate()

	case msgs.LocationMsg:
		if msg.Err != nil {
			m.logger.Warn("location lookup failed", "reason", geo.ReasonOf(msg.Err).String(), "error", msg.Err)
		}
		m.input.SetLocation(msg.Coords, msg.Err)
		return m, nil

	case msgs.HealthMsg:
		m.health = healthStatus(msg)
		m.input.SetHealth(m.health)
		m.results.SetHealth(m.health)
		return m, nil

	case msgs.SubmitFeedbackMsg:
		return m, m.submitFeedback(msg.Rating, msg.Comments)

	case msgs.FeedbackSentMsg:
		m.results.SetFeedbackResult(msg.Err)
		return m, nil
	}

	return m.updateScreen(msg)
}

// applySession moves to the screen the snapshot calls for. Screens are
// rebuilt when the generation or plan changes.
func (m Model) applySession(s session.Session) (Model, tea.Cmd) {
	v := view.Derive(s)
	var cmd tea.Cmd

	switch v.Screen {
	case view.ScreenProgress:
		if m.screen != view.ScreenProgress || v.GenerationID != m.generation {
			m.progress = views.NewProgressModel(s.Request.FreeText)
			m.progress.SetSize(m.width, m.height)
			cmd = m.progress.Init()
		}
		m.progress.SetView(v)

	case view.ScreenResults:
		if m.screen != view.ScreenResults || m.results.Plan() != v.Plan {
			m.results = views.NewResultsModel(v.Plan)
			m.results.SetSize(m.width, m.height)
			m.results.SetHealth(m.health)
		}

	case view.ScreenInput:
		m.input.SetError(v.ErrorMessage)
	}

	if v.Screen != m.screen {
		m.logger.Debug("screen changed", "from", m.screen.String(), "to", v.Screen.String(), "generation", v.GenerationID)
	}
	m.screen = v.Screen
	m.generation = v.GenerationID
	return m, cmd
}

func (m Model) updateScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case view.ScreenProgress:
		m.progress, cmd = m.progress.Update(msg)
	case view.ScreenResults:
		m.results, cmd = m.results.Update(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func healthStatus(msg msgs.HealthMsg) string {
	if msg.Err != nil || msg.Health == nil {
		return styles.WarningStyle.Render("● offline")
	}
	if !msg.Health.Healthy() {
		return styles.WarningStyle.Render("● " + msg.Health.Status)
	}
	return styles.SuccessStyle.Render("● online")
}

// Screen returns the screen being shown.
func (m Model) Screen() view.Screen {
	return m.screen
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width > 0 && m.height > 0 && (m.width < MinTerminalWidth || m.height < MinTerminalHeight) {
		return m.renderTerminalTooSmall()
	}

	switch m.screen {
	case view.ScreenProgress:
		return m.progress.View()
	case view.ScreenResults:
		return m.results.View()
	}
	return m.input.View()
}

// renderTerminalTooSmall renders a message when the terminal is too small.
func (m Model) renderTerminalTooSmall() string {
	var b strings.Builder

	title := styles.ErrorStyle.Render("Terminal too small")
	current := fmt.Sprintf("Current: %dx%d", m.width, m.height)
	minimum := fmt.Sprintf("Minimum: %dx%d", MinTerminalWidth, MinTerminalHeight)

	lines := []string{title, "", current, minimum, "", styles.SubtleStyle.Render("Please resize your terminal")}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)

	topPadding := max((m.height-lipgloss.Height(content))/2, 0)
	b.WriteString(strings.Repeat("\n", topPadding))
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, content))
	return b.String()
}
