// Package msgs defines shared message types for TUI view transitions.
package msgs

import (
	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/geo"
	"github.com/pablasso/routeright/internal/session"
)

// SessionMsg carries a new session snapshot from the controller.
type SessionMsg struct {
	Session session.Session
}

// SessionClosedMsg signals that the controller closed the subscription.
type SessionClosedMsg struct{}

// SubmitMsg is sent when the user submits errands from the input view.
type SubmitMsg struct {
	Text string
}

// GenerateFailedMsg is sent when a request is rejected before it starts.
type GenerateFailedMsg struct {
	Err error
}

// CancelMsg asks to abandon the running generation.
type CancelMsg struct{}

// NewPlanMsg asks to return to the input view for another route.
type NewPlanMsg struct{}

// LocateMsg asks for the user's location to be (re)acquired.
type LocateMsg struct{}

// LocationMsg reports the outcome of a location lookup.
type LocationMsg struct {
	Coords geo.Coordinates
	Err    error
}

// HealthMsg reports the outcome of the startup health probe.
type HealthMsg struct {
	Health *api.HealthResponse
	Err    error
}

// SubmitFeedbackMsg is sent when the user rates the shown plan.
type SubmitFeedbackMsg struct {
	Rating   int
	Comments string
}

// FeedbackSentMsg reports the outcome of a feedback submission.
type FeedbackSentMsg struct {
	Err error
}
