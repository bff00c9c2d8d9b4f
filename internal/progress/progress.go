// Package progress folds progress events into a generation's display state.
// It is pure: no I/O, no clocks, no shared state.
package progress

import "github.com/pablasso/routeright/internal/plan"

// Snapshot is the progress-related part of a session.
type Snapshot struct {
	Stage   plan.Stage
	Percent int
	Message string
}

// Outcome says what an event did to the snapshot.
type Outcome int

const (
	// Continue means the generation is still running.
	Continue Outcome = iota
	// Succeeded means a result arrived.
	Succeeded
	// Failed means an error arrived.
	Failed
	// Discarded means the snapshot was already terminal and nothing changed.
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Discarded:
		return "discarded"
	}
	return "unknown"
}

// Initial is the snapshot of a freshly started generation.
func Initial() Snapshot {
	return Snapshot{Stage: plan.StageUnderstanding, Percent: 0, Message: plan.StageUnderstanding.Message()}
}

// Terminal reports whether no further event can change the snapshot.
func (s Snapshot) Terminal() bool {
	return s.Stage.Terminal()
}

// Advance applies ev to cur.
//
// Percent never decreases and stays within [0, 100]. The stage only moves
// forward through the ordered stages, except that an error moves it to
// failed from anywhere. A progress event naming an earlier or unknown stage
// still raises the percent but leaves stage and message alone.
func Advance(cur Snapshot, ev plan.ProgressEvent) (Snapshot, Outcome) {
	if cur.Terminal() {
		return cur, Discarded
	}

	switch ev.Kind {
	case plan.EventResult:
		return Snapshot{Stage: plan.StageComplete, Percent: 100, Message: plan.StageComplete.Message()}, Succeeded

	case plan.EventError:
		next := cur
		next.Stage = plan.StageFailed
		next.Message = ev.Message
		return next, Failed
	}

	next := cur
	if pct := clamp(ev.Percent); pct > next.Percent {
		next.Percent = pct
	}
	// complete is only reachable through a result
	if ev.Stage.Ordered() && ev.Stage != plan.StageComplete && ev.Stage >= cur.Stage {
		next.Stage = ev.Stage
		if ev.Message != "" {
			next.Message = ev.Message
		} else {
			next.Message = ev.Stage.Message()
		}
	}
	return next, Continue
}

func clamp(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
