package plan

import "fmt"

// EventKind tags the ProgressEvent variant.
type EventKind int

const (
	EventProgress EventKind = iota
	EventResult
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ProgressEvent is one step reported while a plan is generated:
// Progress{Stage, Percent, Message}, Result{Plan} or Error{Err}.
// Events are values; they are never mutated after creation.
type ProgressEvent struct {
	Kind    EventKind
	Stage   Stage
	Percent int
	Message string
	Plan    *Plan
	Err     *Error
}

// Progress creates a non-terminal progress event.
func Progress(stage Stage, percent int, message string) ProgressEvent {
	return ProgressEvent{Kind: EventProgress, Stage: stage, Percent: percent, Message: message}
}

// Result creates a terminal success event.
func Result(p *Plan) ProgressEvent {
	return ProgressEvent{Kind: EventResult, Stage: StageComplete, Percent: 100, Plan: p}
}

// Failure creates a terminal error event.
func Failure(err *Error) ProgressEvent {
	if err == nil {
		err = ErrEmptyMessage
	}
	return ProgressEvent{Kind: EventError, Stage: StageFailed, Err: err, Message: err.Message}
}

// Failuref creates a terminal error event of the given kind.
func Failuref(kind ErrorKind, format string, args ...any) ProgressEvent {
	return Failure(NewError(kind, fmt.Sprintf(format, args...), nil))
}

// IsTerminal reports whether the event ends a generation.
func (e ProgressEvent) IsTerminal() bool {
	return e.Kind == EventResult || e.Kind == EventError
}

func (e ProgressEvent) String() string {
	switch e.Kind {
	case EventProgress:
		return fmt.Sprintf("progress(%s %d%%)", e.Stage, e.Percent)
	case EventResult:
		n := 0
		if e.Plan != nil {
			n = len(e.Plan.Stops)
		}
		return fmt.Sprintf("result(%d stops)", n)
	case EventError:
		return fmt.Sprintf("error(%s)", e.Message)
	}
	return "event(?)"
}
