// Package session owns the canonical state of plan generation.
//
// A Controller runs at most one generation at a time. Every generation gets
// a fresh id; events are applied only while their id is the live one, so
// late events from abandoned generations can never touch the session.
package session

import (
	"time"

	"github.com/pablasso/routeright/internal/plan"
)

// Status represents the session status.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session is a point-in-time copy of the generation state.
type Session struct {
	GenerationID uint64         // Live generation; bumped by every Generate and Reset
	Status       Status         // idle, running, completed or failed
	Stage        plan.Stage     // Current stage; failed once the generation fails
	Percent      int            // 0-100, never decreases within a generation
	Message      string         // Headline for the current stage
	Plan         *plan.Plan     // Set only when completed
	ErrorMessage string         // Set only when failed
	ErrorKind    plan.ErrorKind // Kind of the failure when failed
	Request      plan.PlanRequest
	StartedAt    time.Time
}

// Terminal reports whether the generation has finished.
func (s Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

func idle(gen uint64) Session {
	return Session{GenerationID: gen, Status: StatusIdle, Stage: plan.StageUnderstanding}
}
