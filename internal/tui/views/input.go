package views

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/routeright/internal/geo"
	"github.com/pablasso/routeright/internal/tui/components"
	"github.com/pablasso/routeright/internal/tui/msgs"
	"github.com/pablasso/routeright/internal/tui/styles"
)

// LocationState tracks where the input view is in acquiring a location.
type LocationState int

const (
	LocationPending LocationState = iota
	LocationReady
	LocationFailed
)

// InputModel is the landing screen where errands are typed.
type InputModel struct {
	input textinput.Model

	location      LocationState
	coords        geo.Coordinates
	locationError string

	errorMsg string // failure of the previous generation
	health   string

	width  int
	height int
}

// NewInputModel creates the input view.
func NewInputModel() InputModel {
	ti := textinput.New()
	ti.Placeholder = "e.g. pick up milk, get gas and drop off a package"
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	return InputModel{input: ti}
}

// Init implements tea.Model.
func (m InputModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m InputModel) Update(msg tea.Msg) (InputModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+l":
			if m.location != LocationPending {
				m.location = LocationPending
				m.locationError = ""
				return m, func() tea.Msg { return msgs.LocateMsg{} }
			}
			return m, nil
		case "enter":
			if !m.CanSubmit() {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			m.errorMsg = ""
			return m, func() tea.Msg { return msgs.SubmitMsg{Text: text} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// CanSubmit reports whether enter would start a generation: there must be
// errands to plan and a known location.
func (m InputModel) CanSubmit() bool {
	return strings.TrimSpace(m.input.Value()) != "" && m.location == LocationReady
}

// SetLocation records the outcome of a location lookup.
func (m *InputModel) SetLocation(coords geo.Coordinates, err error) {
	if err != nil {
		m.location = LocationFailed
		m.locationError = (&geo.LocationError{Reason: geo.Unavailable}).Message()
		var le *geo.LocationError
		if errors.As(err, &le) {
			m.locationError = le.Message()
		}
		return
	}
	m.location = LocationReady
	m.coords = coords
	m.locationError = ""
}

// Location returns the acquired coordinates.
func (m InputModel) Location() (geo.Coordinates, bool) {
	return m.coords, m.location == LocationReady
}

// SetError shows the failure of the previous generation.
func (m *InputModel) SetError(msg string) {
	m.errorMsg = msg
}

// Error returns the shown error message.
func (m InputModel) Error() string {
	return m.errorMsg
}

// SetHealth sets the service status shown in the status bar.
func (m *InputModel) SetHealth(status string) {
	m.health = status
}

// SetValue replaces the typed text.
func (m *InputModel) SetValue(s string) {
	m.input.SetValue(s)
	m.input.CursorEnd()
}

// Value returns the typed text.
func (m InputModel) Value() string {
	return m.input.Value()
}

// SetSize updates the model dimensions.
func (m *InputModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if w := width - 8; w > 20 && w < 80 {
		m.input.Width = w
	}
}

// View implements tea.Model.
func (m InputModel) View() string {
	var b strings.Builder

	title := styles.TitleStyle.Render("R O U T E R I G H T")
	tagline := styles.SubtleStyle.Render("Tell us your errands. We'll plan the route.")

	var lines []string
	lines = append(lines,
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title),
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, tagline),
		"",
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, styles.BoxStyle.Render(m.input.View())),
		"",
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.locationLine()),
	)
	if m.errorMsg != "" {
		lines = append(lines, "",
			lipgloss.PlaceHorizontal(m.width, lipgloss.Center, styles.ErrorStyle.Render("✗ "+m.errorMsg)))
	}

	content := strings.Join(lines, "\n")
	contentHeight := lipgloss.Height(content)
	availableHeight := m.height - 1 // status bar
	topPadding := max((availableHeight-contentHeight)/2, 0)

	b.WriteString(strings.Repeat("\n", topPadding))
	b.WriteString(content)

	bottomPadding := max(availableHeight-topPadding-contentHeight, 0)
	b.WriteString(strings.Repeat("\n", bottomPadding+1))

	hints := []string{"Enter Plan route", "Ctrl+L Retry location", "Esc Quit"}
	b.WriteString(components.NewStatusBar(m.health).Render(m.width, hints))

	return b.String()
}

func (m InputModel) locationLine() string {
	switch m.location {
	case LocationReady:
		return styles.SuccessStyle.Render("📍 " + m.coords.String())
	case LocationFailed:
		return styles.WarningStyle.Render("⚠ " + m.locationError)
	}
	return styles.SubtleStyle.Render("Getting your location...")
}
