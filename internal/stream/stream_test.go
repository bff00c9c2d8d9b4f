package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/plan"
)

const validPlan = `{"plan_id":"p1","stops":[{"id":"s1","name":"Corner Market","category":"grocery","address":"1 Main St"}],"total_time":"~20m"}`

func record(payload string) string {
	return "data: " + payload + "\n\n"
}

func TestParse_FiveRecordsOneMalformed(t *testing.T) {
	body := record(`{"type":"progress","data":{"progress":10,"step":"decomposing","message":"Understanding your errands..."}}`) +
		record(`{"type":"progress","data":{"progress":30,"step":"searching","message":"Finding places for 2 tasks..."}}`) +
		record(`{"type":"progress","data":{"progress":`) +
		record(`{"type":"progress","data":{"progress":80,"step":"optimizing","message":"Optimizing your route..."}}`) +
		record(`{"type":"complete","data":`+validPlan+`}`)

	m := metrics.New()
	s := Parse(context.Background(), strings.NewReader(body), WithMetrics(m))
	events := Collect(s)

	require.Len(t, events, 4)
	assert.Equal(t, plan.StageUnderstanding, events[0].Stage)
	assert.Equal(t, 10, events[0].Percent)
	assert.Equal(t, plan.StageSearching, events[1].Stage)
	assert.Equal(t, plan.StageOptimizing, events[2].Stage)
	assert.Equal(t, plan.EventResult, events[3].Kind)
	assert.Equal(t, "p1", events[3].Plan.ID)

	assert.EqualValues(t, 1, s.Dropped())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamRecordsDropped))
	assert.NoError(t, s.Err())
}

func TestParse_ByteAtATime(t *testing.T) {
	body := record(`{"type":"progress","data":{"progress":40,"step":"searching","message":"Searching"}}`) +
		record(validPlan)

	s := Parse(context.Background(), iotest.OneByteReader(strings.NewReader(body)))
	events := Collect(s)

	require.Len(t, events, 2)
	assert.Equal(t, plan.EventProgress, events[0].Kind)
	assert.Equal(t, plan.EventResult, events[1].Kind, "bare plan objects are results")
}

func TestParse_TrailingPartialDiscardedAtEOF(t *testing.T) {
	body := record(`{"type":"progress","data":{"progress":20,"step":"understanding","message":"m"}}`) +
		`data: {"type":"complete","data":` + validPlan

	events := Collect(Parse(context.Background(), strings.NewReader(body)))
	require.Len(t, events, 1)
	assert.Equal(t, plan.EventProgress, events[0].Kind)
}

func TestParse_ReadErrorSurfaced(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader(record(validPlan)), iotest.ErrReader(boom))

	s := Parse(context.Background(), r)
	events := Collect(s)

	require.Len(t, events, 1)
	assert.ErrorIs(t, s.Err(), boom)
}

func TestParse_ContextCancelClosesChannel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := Parse(ctx, pr)

	go func() {
		_, _ = pw.Write([]byte(record(`{"type":"progress","data":{"progress":20,"step":"understanding","message":"m"}}`)))
	}()

	select {
	case ev := <-s.Events():
		assert.Equal(t, plan.EventProgress, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	// unblock the pending Read the way a dispatcher closes a response body
	_ = pr.CloseWithError(context.Canceled)

	select {
	case _, ok := <-s.Events():
		assert.False(t, ok, "channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Error(t, s.Err())
}

func TestDecoder_SplitAcrossFeeds(t *testing.T) {
	d := NewDecoder()

	assert.Empty(t, d.Feed([]byte(`data: {"type":"progress","data":{"progress":60,`)))
	assert.Positive(t, d.Buffered())
	assert.Empty(t, d.Feed([]byte(`"step":"validating","message":"Filtering"}}`+"\n")))

	events := d.Feed([]byte("\n"))
	require.Len(t, events, 1)
	assert.Equal(t, plan.StageValidating, events[0].Stage)
	assert.Equal(t, "Filtering", events[0].Message)
	assert.Zero(t, d.Buffered())
}

func TestDecoder_CRLF(t *testing.T) {
	d := NewDecoder()
	events := d.Feed([]byte("data: {\"type\":\"progress\",\"data\":{\"progress\":40,\"step\":\"searching\",\"message\":\"x\"}}\r\n\r"))
	assert.Empty(t, events)

	events = d.Feed([]byte("\n"))
	require.Len(t, events, 1)
	assert.Equal(t, plan.StageSearching, events[0].Stage)
}

func TestDecoder_IgnoresNonDataRecords(t *testing.T) {
	d := NewDecoder()
	events := d.Feed([]byte(": keep-alive\n\nevent: ping\n\n\n\n" + record(validPlan)))

	require.Len(t, events, 1)
	assert.Zero(t, d.Dropped(), "comments and keep-alives are not drops")
}

func TestDecoder_DropsUnknownShapes(t *testing.T) {
	d := NewDecoder()
	events := d.Feed([]byte(
		record(`{"type":"telemetry","data":{}}`) +
			record(`{"hello":"world"}`) +
			record(`[1,2,3]`) +
			record(`{"type":"progress"}`),
	))

	assert.Empty(t, events)
	assert.EqualValues(t, 4, d.Dropped())
}

func TestDecoder_OversizedRecordDropped(t *testing.T) {
	d := NewDecoder(WithMaxRecordSize(96))

	big := `{"type":"progress","data":{"progress":20,"step":"understanding","message":"` + strings.Repeat("x", 200) + `"}}`
	assert.Empty(t, d.Feed([]byte("data: "+big[:100])))
	assert.Empty(t, d.Feed([]byte(big[100:]+"\n")))
	events := d.Feed([]byte("\n" + record(`{"type":"progress","data":{"progress":40,"step":"searching","message":"ok"}}`)))

	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Message)
	assert.EqualValues(t, 1, d.Dropped())
}

func TestDecodePayload_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		message string
		kind    plan.ErrorKind
	}{
		{"error record", `{"type":"error","data":{"message":"An error occurred: no places"}}`, "An error occurred: no places", plan.KindNetwork},
		{"error string", `{"type":"error","data":"backend down"}`, "backend down", plan.KindNetwork},
		{"error without message", `{"type":"error"}`, "Failed to create plan", plan.KindNetwork},
		{"detail body", `{"detail":"Rate limit exceeded"}`, "Rate limit exceeded", plan.KindNetwork},
		{"failed step", `{"type":"progress","data":{"progress":50,"step":"error","message":"search failed"}}`, "search failed", plan.KindNetwork},
		{"invalid plan", `{"type":"complete","data":{"plan_id":"p","stops":[{"id":"a"}]}}`, "planning service returned an incomplete plan (missing stops[0].name)", plan.KindValidation},
		{"missing plan", `{"type":"result"}`, plan.ErrMissingPlan.Message, plan.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := decodePayload([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, plan.EventError, ev.Kind)
			assert.Equal(t, tt.message, ev.Message)
			assert.Equal(t, tt.kind, ev.Err.Kind)
		})
	}
}

func TestDecodePayload_UnknownStageKeepsPercent(t *testing.T) {
	ev, err := decodePayload([]byte(`{"type":"progress","data":{"progress":55,"step":"teleporting","message":"?"}}`))
	require.NoError(t, err)
	assert.Equal(t, plan.StageUnknown, ev.Stage)
	assert.Equal(t, 55, ev.Percent)
}
