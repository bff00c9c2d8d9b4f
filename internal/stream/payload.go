package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pablasso/routeright/internal/plan"
)

// Record types sent by the planning service.
const (
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeComplete = "complete"
	TypeError    = "error"
)

// progressData is the data object of a progress record.
type progressData struct {
	Progress *int   `json:"progress"`
	Step     string `json:"step"`
	Message  string `json:"message"`
	Status   string `json:"status,omitempty"`
}

// errorData is the data object of an error record.
type errorData struct {
	Message string `json:"message"`
}

var errUnknownShape = errors.New("unrecognized payload")

// decodePayload turns one record payload into an event. An error means the
// record must be dropped.
func decodePayload(payload []byte) (plan.ProgressEvent, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return plan.ProgressEvent{}, fmt.Errorf("invalid json: %w", err)
	}

	rawType, hasType := obj["type"]
	if !hasType {
		return decodeUntyped(obj, payload)
	}

	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return plan.ProgressEvent{}, fmt.Errorf("invalid type field: %w", err)
	}

	data := obj["data"]
	switch strings.ToLower(typ) {
	case TypeProgress:
		return decodeProgress(data)
	case TypeResult, TypeComplete:
		if isNull(data) {
			return plan.Failure(plan.ErrMissingPlan), nil
		}
		return resultEvent(data), nil
	case TypeError:
		return decodeError(data), nil
	}
	return plan.ProgressEvent{}, fmt.Errorf("%w: type %q", errUnknownShape, typ)
}

// decodeUntyped handles a bare plan object or a {"detail": ...} error body.
func decodeUntyped(obj map[string]json.RawMessage, payload []byte) (plan.ProgressEvent, error) {
	if plan.LooksLikePlan(obj) {
		return resultEvent(payload), nil
	}
	if _, ok := obj["detail"]; ok {
		msg := plan.DecodeDetail(payload)
		if msg == "" {
			msg = plan.ErrPlanFailed.Message
		}
		return plan.Failure(plan.NewError(plan.KindNetwork, msg, nil)), nil
	}
	return plan.ProgressEvent{}, errUnknownShape
}

func decodeProgress(data json.RawMessage) (plan.ProgressEvent, error) {
	if isNull(data) {
		return plan.ProgressEvent{}, fmt.Errorf("%w: progress without data", errUnknownShape)
	}
	var pd progressData
	if err := json.Unmarshal(data, &pd); err != nil {
		return plan.ProgressEvent{}, fmt.Errorf("invalid progress data: %w", err)
	}

	stage, _ := plan.ParseStage(pd.Step)
	if stage == plan.StageFailed {
		msg := strings.TrimSpace(pd.Message)
		if msg == "" {
			msg = plan.ErrPlanFailed.Message
		}
		return plan.Failure(plan.NewError(plan.KindNetwork, msg, nil)), nil
	}

	percent := 0
	if pd.Progress != nil {
		percent = *pd.Progress
	}
	return plan.Progress(stage, percent, pd.Message), nil
}

func decodeError(data json.RawMessage) plan.ProgressEvent {
	var ed errorData
	if !isNull(data) {
		// a string payload is the message itself
		if err := json.Unmarshal(data, &ed); err != nil {
			_ = json.Unmarshal(data, &ed.Message)
		}
	}
	msg := strings.TrimSpace(ed.Message)
	if msg == "" {
		msg = plan.ErrPlanFailed.Message
	}
	return plan.Failure(plan.NewError(plan.KindNetwork, msg, nil))
}

// resultEvent validates the plan; a schema violation becomes an error event.
func resultEvent(data []byte) plan.ProgressEvent {
	p, err := plan.DecodePlan(data)
	if err != nil {
		var perr *plan.Error
		if errors.As(err, &perr) {
			return plan.Failure(perr)
		}
		return plan.Failure(plan.NewError(plan.KindValidation, err.Error(), err))
	}
	return plan.Result(p)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
