package demo

import (
	"strings"
	"testing"

	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/stream"
)

func demoPlan(t *testing.T) *plan.Plan {
	t.Helper()
	p, _, err := BuildPlan(plan.PlanRequest{FreeText: "milk and gas", Lat: 10, Lng: 20})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	return p
}

// decode runs records through the client's stream decoder.
func decode(t *testing.T, records []string) ([]plan.ProgressEvent, int64) {
	t.Helper()
	var b strings.Builder
	for _, r := range records {
		b.WriteString("data: " + r + "\n\n")
	}
	d := stream.NewDecoder()
	return d.Feed([]byte(b.String())), d.Dropped()
}

func TestParseScenario(t *testing.T) {
	for _, in := range []string{"success", "FAIL", " malformed", "invalid"} {
		if _, err := ParseScenario(in); err != nil {
			t.Errorf("ParseScenario(%q): %v", in, err)
		}
	}
	if _, err := ParseScenario("flaky"); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestRecords_Success(t *testing.T) {
	p := demoPlan(t)
	records, err := Records(ScenarioSuccess, p, 2)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}

	events, dropped := decode(t, records)
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if len(events) != 6 {
		t.Fatalf("got %d events, want 6", len(events))
	}

	wantPercent := []int{10, 30, 60, 80, 95}
	for i, want := range wantPercent {
		if events[i].Percent != want {
			t.Errorf("event %d percent = %d, want %d", i, events[i].Percent, want)
		}
	}
	if events[1].Message != "Finding places for 2 errands..." {
		t.Errorf("searching message = %q", events[1].Message)
	}
	if events[4].Stage != plan.StageFinalizing {
		t.Errorf("formatting maps to %s, want finalizing", events[4].Stage)
	}

	last := events[5]
	if last.Kind != plan.EventResult || last.Plan == nil || last.Plan.ID != p.ID {
		t.Fatalf("last event = %s, want the plan", last)
	}
}

func TestRecords_Fail(t *testing.T) {
	records, err := Records(ScenarioFail, demoPlan(t), 2)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}

	events, _ := decode(t, records)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	last := events[3]
	if last.Kind != plan.EventError || last.Message != FailureMessage {
		t.Errorf("last event = %s, want error %q", last, FailureMessage)
	}
}

func TestRecords_MalformedStillSucceeds(t *testing.T) {
	records, err := Records(ScenarioMalformed, demoPlan(t), 2)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}

	events, dropped := decode(t, records)
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(events) != 6 || events[5].Kind != plan.EventResult {
		t.Fatalf("expected 5 progress events and a result, got %d events", len(events))
	}
}

func TestRecords_InvalidPlanFailsValidation(t *testing.T) {
	records, err := Records(ScenarioInvalid, demoPlan(t), 2)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}

	events, _ := decode(t, records)
	last := events[len(events)-1]
	if last.Kind != plan.EventError || last.Err == nil || last.Err.Kind != plan.KindValidation {
		t.Fatalf("last event = %s, want a validation error", last)
	}
}
