package demo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pablasso/routeright/internal/plan"
)

// Scenario controls how a demo generation ends.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"   // every step, then the plan
	ScenarioFail      Scenario = "fail"      // the service errors after validating
	ScenarioMalformed Scenario = "malformed" // undecodable records mixed into a successful stream
	ScenarioInvalid   Scenario = "invalid"   // the plan is missing required fields
)

func ParseScenario(value string) (Scenario, error) {
	switch Scenario(strings.ToLower(strings.TrimSpace(value))) {
	case ScenarioSuccess, ScenarioFail, ScenarioMalformed, ScenarioInvalid:
		return Scenario(strings.ToLower(strings.TrimSpace(value))), nil
	default:
		return "", fmt.Errorf("invalid demo scenario %q (valid: success, fail, malformed, invalid)", value)
	}
}

// FailureMessage is what the fail scenario reports.
const FailureMessage = "An error occurred: no places found for your errands"

type progressStep struct {
	Step     string
	Message  string
	Progress int
}

// progressSteps is the sequence the planning service reports.
var progressSteps = []progressStep{
	{"decomposing", "Understanding your errands...", 10},
	{"searching", "Finding places for %d errands...", 30},
	{"validating", "Filtering and validating locations...", 60},
	{"optimizing", "Optimizing your route...", 80},
	{"formatting", "Preparing your plan...", 95},
}

type progressData struct {
	Step     string `json:"step"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type errorData struct {
	Message string `json:"message"`
}

// Records returns the framed-record payloads for one generation, without the
// "data: " prefix. Raw lines the client should ignore are returned as is.
func Records(scenario Scenario, p *plan.Plan, errands int) ([]string, error) {
	var out []string
	add := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out = append(out, string(data))
		return nil
	}

	for i, s := range progressSteps {
		msg := s.Message
		if strings.Contains(msg, "%d") {
			msg = fmt.Sprintf(msg, errands)
		}
		if err := add(record{Type: "progress", Data: progressData{
			Step: s.Step, Message: msg, Progress: s.Progress, Status: "processing",
		}}); err != nil {
			return nil, err
		}

		switch {
		case scenario == ScenarioFail && s.Step == "validating":
			if err := add(record{Type: "error", Data: errorData{Message: FailureMessage}}); err != nil {
				return nil, err
			}
			return out, nil
		case scenario == ScenarioMalformed && i == 1:
			out = append(out, `{"type":"progress","data":{"progress":`, `["not","an","event"]`)
		}
	}

	body, err := planBody(scenario, p)
	if err != nil {
		return nil, err
	}
	out = append(out, `{"type":"complete","data":`+string(body)+`}`)
	return out, nil
}

// planBody is the plan JSON for scenario. The invalid scenario strips the
// stop names the client requires.
func planBody(scenario Scenario, p *plan.Plan) ([]byte, error) {
	w := plan.FromPlan(p)
	if scenario == ScenarioInvalid {
		for i := range w.Stops {
			w.Stops[i].Name = ""
		}
	}
	return json.Marshal(w)
}
