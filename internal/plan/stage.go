package plan

import "strings"

// Stage is one step of the backend's multi-phase plan generation.
// The zero value is StageUnderstanding.
type Stage int

const (
	StageUnderstanding Stage = iota
	StageSearching
	StageValidating
	StageOptimizing
	StageFinalizing
	StageComplete

	// StageFailed sits outside the normal order. It is terminal and
	// reachable from any stage.
	StageFailed Stage = -1

	// StageUnknown is a step name this client does not recognize.
	StageUnknown Stage = -2
)

// OrderedStages lists the stages a successful generation moves through.
var OrderedStages = []Stage{
	StageUnderstanding,
	StageSearching,
	StageValidating,
	StageOptimizing,
	StageFinalizing,
	StageComplete,
}

var stageNames = map[Stage]string{
	StageUnderstanding: "understanding",
	StageSearching:     "searching",
	StageValidating:    "validating",
	StageOptimizing:    "optimizing",
	StageFinalizing:    "finalizing",
	StageComplete:      "complete",
	StageFailed:        "failed",
}

// aliases maps step names used by older backends onto stages.
var stageAliases = map[string]Stage{
	"decomposing": StageUnderstanding,
	"decompose":   StageUnderstanding,
	"search":      StageSearching,
	"validate":    StageValidating,
	"optimize":    StageOptimizing,
	"formatting":  StageFinalizing,
	"format":      StageFinalizing,
	"completed":   StageComplete,
	"done":        StageComplete,
	"error":       StageFailed,
}

// ParseStage maps a wire step name onto a Stage.
func ParseStage(name string) (Stage, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for stage, n := range stageNames {
		if n == key {
			return stage, true
		}
	}
	if stage, ok := stageAliases[key]; ok {
		return stage, true
	}
	return StageUnknown, false
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Ordered reports whether the stage is part of the normal forward order.
func (s Stage) Ordered() bool {
	return s >= StageUnderstanding && s <= StageComplete
}

// Terminal reports whether no further stage can follow.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// Label is the short name shown in the progress stepper.
func (s Stage) Label() string {
	switch s {
	case StageUnderstanding:
		return "Understanding"
	case StageSearching:
		return "Searching"
	case StageValidating:
		return "Validating"
	case StageOptimizing:
		return "Optimizing"
	case StageFinalizing:
		return "Finalizing"
	case StageComplete:
		return "Complete"
	case StageFailed:
		return "Failed"
	}
	return "Unknown"
}

// Message is the headline shown while the stage is active.
func (s Stage) Message() string {
	switch s {
	case StageUnderstanding:
		return "Understanding your errands..."
	case StageSearching:
		return "Finding nearby places..."
	case StageValidating:
		return "Filtering best locations..."
	case StageOptimizing:
		return "Calculating the best route..."
	case StageFinalizing:
		return "Putting it all together..."
	case StageComplete:
		return "Your route is ready"
	}
	return "Planning your route..."
}
