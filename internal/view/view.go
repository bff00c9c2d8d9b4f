// Package view derives what the user should see from a session.
package view

import (
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/session"
)

// Screen is one of the three top-level screens.
type Screen int

const (
	ScreenInput Screen = iota
	ScreenProgress
	ScreenResults
)

func (s Screen) String() string {
	switch s {
	case ScreenProgress:
		return "progress"
	case ScreenResults:
		return "results"
	}
	return "input"
}

// GenericError is shown when a session reaches a state that has no sensible
// rendering of its own.
const GenericError = "Something went wrong. Please try again."

// View is the rendering decision for one session snapshot.
type View struct {
	Screen       Screen
	ErrorMessage string
	Plan         *plan.Plan
	Stage        plan.Stage
	Percent      int
	Message      string
	GenerationID uint64
}

// Derive maps a session onto a screen. It never fails: combinations that
// should not occur fall back to the input screen with GenericError.
func Derive(s session.Session) View {
	v := View{
		Stage:        s.Stage,
		Percent:      s.Percent,
		Message:      s.Message,
		GenerationID: s.GenerationID,
	}

	switch s.Status {
	case session.StatusIdle:
		v.Screen = ScreenInput
	case session.StatusRunning:
		v.Screen = ScreenProgress
		if v.Message == "" {
			v.Message = v.Stage.Message()
		}
	case session.StatusCompleted:
		if s.Plan == nil {
			return degraded(v)
		}
		v.Screen = ScreenResults
		v.Plan = s.Plan
	case session.StatusFailed:
		if s.ErrorMessage == "" {
			return degraded(v)
		}
		v.Screen = ScreenInput
		v.ErrorMessage = s.ErrorMessage
	default:
		return degraded(v)
	}
	return v
}

func degraded(v View) View {
	v.Screen = ScreenInput
	v.Plan = nil
	v.ErrorMessage = GenericError
	return v
}

// StepState is how a single stepper entry is drawn.
type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepDone
)

// Step is one entry of the progress stepper.
type Step struct {
	Stage plan.Stage
	Label string
	State StepState
}

// Steps returns the stepper entries for every stage before completion.
// Stages before the current one are done and the current one is active.
func (v View) Steps() []Step {
	stages := plan.OrderedStages[:len(plan.OrderedStages)-1]
	steps := make([]Step, 0, len(stages))
	for _, st := range stages {
		state := StepPending
		switch {
		case v.Stage == plan.StageComplete || st < v.Stage:
			state = StepDone
		case st == v.Stage:
			state = StepActive
		}
		steps = append(steps, Step{Stage: st, Label: st.Label(), State: state})
	}
	return steps
}

// HasError reports whether an error banner should be shown.
func (v View) HasError() bool {
	return v.ErrorMessage != ""
}
