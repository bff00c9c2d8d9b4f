package views

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pablasso/routeright/internal/geo"
	"github.com/pablasso/routeright/internal/tui/msgs"
)

var testCoords = geo.Coordinates{Lat: 37.7749, Lng: -122.4194}

func TestInputModel_Update_WindowSizeMsg(t *testing.T) {
	m := NewInputModel()

	newM, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if cmd != nil {
		t.Error("expected no command from WindowSizeMsg")
	}
	if newM.width != 80 || newM.height != 24 {
		t.Errorf("expected size 80x24, got %dx%d", newM.width, newM.height)
	}
}

func TestInputModel_EnterRequiresTextAndLocation(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		located   bool
		expectMsg bool
	}{
		{name: "text and location", text: "buy milk", located: true, expectMsg: true},
		{name: "no location yet", text: "buy milk", located: false, expectMsg: false},
		{name: "blank text", text: "   ", located: true, expectMsg: false},
		{name: "nothing", text: "", located: false, expectMsg: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInputModel()
			m.SetValue(tt.text)
			if tt.located {
				m.SetLocation(testCoords, nil)
			}

			if m.CanSubmit() != tt.expectMsg {
				t.Errorf("expected CanSubmit() = %v", tt.expectMsg)
			}

			_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			if !tt.expectMsg {
				if cmd != nil {
					t.Error("expected no command")
				}
				return
			}
			if cmd == nil {
				t.Fatal("expected a command")
			}
			submit, ok := cmd().(msgs.SubmitMsg)
			if !ok {
				t.Fatalf("expected SubmitMsg, got %T", cmd())
			}
			if submit.Text != strings.TrimSpace(tt.text) {
				t.Errorf("expected text %q, got %q", tt.text, submit.Text)
			}
		})
	}
}

func TestInputModel_SubmitTrimsAndClearsError(t *testing.T) {
	m := NewInputModel()
	m.SetValue("  get gas  ")
	m.SetLocation(testCoords, nil)
	m.SetError("previous failure")

	newM, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if newM.Error() != "" {
		t.Errorf("expected error to be cleared, got %q", newM.Error())
	}
	if got := cmd().(msgs.SubmitMsg).Text; got != "get gas" {
		t.Errorf("expected trimmed text, got %q", got)
	}
}

func TestInputModel_SetLocation_Failure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect string
	}{
		{
			name:   "permission denied",
			err:    &geo.LocationError{Reason: geo.PermissionDenied},
			expect: "Location access was denied",
		},
		{
			name:   "timeout",
			err:    &geo.LocationError{Reason: geo.Timeout},
			expect: "Timed out while getting your location",
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			expect: "Unable to get location",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInputModel()
			m.SetSize(100, 30)
			m.SetLocation(geo.Coordinates{}, tt.err)

			if _, ok := m.Location(); ok {
				t.Error("expected no location")
			}
			if !strings.Contains(m.View(), tt.expect) {
				t.Errorf("expected view to contain %q", tt.expect)
			}
		})
	}
}

func TestInputModel_RetryLocation(t *testing.T) {
	m := NewInputModel()

	// Lookup still pending: nothing to retry.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if cmd != nil {
		t.Error("expected no command while the lookup is pending")
	}

	m.SetLocation(geo.Coordinates{}, &geo.LocationError{Reason: geo.Unavailable})
	newM, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(msgs.LocateMsg); !ok {
		t.Errorf("expected LocateMsg, got %T", cmd())
	}
	if newM.location != LocationPending {
		t.Errorf("expected location to be pending again, got %v", newM.location)
	}
}

func TestInputModel_View(t *testing.T) {
	m := NewInputModel()
	m.SetSize(100, 30)
	m.SetLocation(testCoords, nil)
	m.SetError("No places matched your errands")
	m.SetHealth("● online")

	view := m.View()

	for _, want := range []string{
		"R O U T E R I G H T",
		"37.7749, -122.4194",
		"No places matched your errands",
		"● online",
		"Enter Plan route",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestInputModel_View_PendingLocation(t *testing.T) {
	m := NewInputModel()
	m.SetSize(100, 30)

	if !strings.Contains(m.View(), "Getting your location...") {
		t.Error("expected pending location hint")
	}
}

func TestInputModel_EscQuits(t *testing.T) {
	m := NewInputModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected QuitMsg, got %T", cmd())
	}
}
