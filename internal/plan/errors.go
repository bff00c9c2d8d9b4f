package plan

import "errors"

// ErrorKind categorizes failures for handling.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindNetwork covers failed requests and non-success responses.
	KindNetwork
	// KindParse is a stream record that could not be decoded. It never
	// leaves the stream parser.
	KindParse
	// KindValidation is a payload missing required fields, or a request
	// that cannot be submitted.
	KindValidation
	// KindLocation is a geolocation failure. It blocks submission but never
	// touches a running generation.
	KindLocation
	// KindStaleGeneration marks an event for a generation that is no
	// longer live. Internal only.
	KindStaleGeneration
	// KindTimeout is the generation watchdog firing.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindLocation:
		return "location"
	case KindStaleGeneration:
		return "stale_generation"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// Error is the error type shared by the orchestrator's components.
// Message is always safe to show to the user.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError creates an Error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for the generic fallbacks.
var (
	ErrPlanFailed   = &Error{Kind: KindNetwork, Message: "Failed to create plan"}
	ErrStreamEnded  = &Error{Kind: KindNetwork, Message: "plan stream ended before a result was returned"}
	ErrStale        = &Error{Kind: KindStaleGeneration, Message: "generation is no longer live"}
	ErrMissingPlan  = &Error{Kind: KindValidation, Message: "response did not contain a plan"}
	ErrEmptyMessage = &Error{Kind: KindUnknown, Message: "Something went wrong while planning your route"}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the human-readable message for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return ErrEmptyMessage.Message
}
