package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/plan"
	rrtest "github.com/pablasso/routeright/internal/testutil"
)

const planJSON = `{"plan_id":"p1","stops":[{"id":"s1","name":"Corner Market","category":"grocery","address":"1 Main St"}]}`

var testRequest = plan.PlanRequest{FreeText: "need milk and gas", Lat: 10, Lng: 20}

type fakePlanner struct {
	open    func(ctx context.Context, req plan.PlanRequest) (*api.PlanResponse, error)
	create  func(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error)
	opens   atomic.Int32
	creates atomic.Int32
}

func (f *fakePlanner) OpenPlan(ctx context.Context, req plan.PlanRequest) (*api.PlanResponse, error) {
	f.opens.Add(1)
	return f.open(ctx, req)
}

func (f *fakePlanner) CreatePlan(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
	f.creates.Add(1)
	return f.create(ctx, req)
}

func collect(t *testing.T, ch <-chan plan.ProgressEvent) []plan.ProgressEvent {
	t.Helper()
	var events []plan.ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("channel not closed; got %v", events)
		}
	}
}

func sseClient(t *testing.T, records ...string) *api.Client {
	t.Helper()
	srv := rrtest.SSEServer(t, 0, records...)
	return api.NewClient(&api.Config{BaseURL: srv.URL, RateLimit: 100, RateBurst: 10})
}

func TestStreamDispatcher_Success(t *testing.T) {
	client := sseClient(t,
		rrtest.ProgressRecord("decomposing", 10, "Understanding your errands..."),
		rrtest.ProgressRecord("searching", 30, "Finding places for 2 tasks..."),
		rrtest.CompleteRecord(planJSON),
		rrtest.ProgressRecord("formatting", 99, "after the end"),
	)

	events := collect(t, NewStream(client).Submit(context.Background(), testRequest))

	require.Len(t, events, 3, "nothing after the terminal event")
	assert.Equal(t, plan.StageUnderstanding, events[0].Stage)
	assert.Equal(t, plan.StageSearching, events[1].Stage)
	assert.Equal(t, plan.EventResult, events[2].Kind)
	assert.Equal(t, "p1", events[2].Plan.ID)
}

func TestStreamDispatcher_ServerError(t *testing.T) {
	client := sseClient(t, rrtest.ErrorRecord("An error occurred: no places"))

	events := collect(t, NewStream(client).Submit(context.Background(), testRequest))
	require.Len(t, events, 1)
	assert.Equal(t, plan.EventError, events[0].Kind)
	assert.Equal(t, "An error occurred: no places", events[0].Message)
}

func TestStreamDispatcher_EndsWithoutResult(t *testing.T) {
	client := sseClient(t, rrtest.ProgressRecord("decomposing", 10, "m"))

	events := collect(t, NewStream(client).Submit(context.Background(), testRequest))
	require.Len(t, events, 2)
	assert.Equal(t, plan.EventError, events[1].Kind)
	assert.Equal(t, plan.ErrStreamEnded.Message, events[1].Message)
}

func TestStreamDispatcher_HTTPStatus(t *testing.T) {
	srv := rrtest.JSONServer(t, http.StatusInternalServerError, `{"detail":"Failed to generate plan: upstream"}`)

	client := api.NewClient(&api.Config{BaseURL: srv.URL})
	events := collect(t, NewStream(client).Submit(context.Background(), testRequest))

	require.Len(t, events, 1)
	assert.Equal(t, plan.KindNetwork, events[0].Err.Kind)
	assert.Equal(t, "Failed to generate plan: upstream", events[0].Message)
}

func TestStreamDispatcher_WholeJSONBody(t *testing.T) {
	called := false
	f := &fakePlanner{open: func(ctx context.Context, req plan.PlanRequest) (*api.PlanResponse, error) {
		return &api.PlanResponse{Body: io.NopCloser(strings.NewReader(planJSON))}, nil
	}}

	d := NewStream(f)
	d.onWholeBody = func() { called = true }
	events := collect(t, d.Submit(context.Background(), testRequest))

	require.Len(t, events, 1)
	assert.Equal(t, plan.EventResult, events[0].Kind)
	assert.True(t, called)
}

func TestStreamDispatcher_InvalidWholeBody(t *testing.T) {
	f := &fakePlanner{open: func(ctx context.Context, req plan.PlanRequest) (*api.PlanResponse, error) {
		return &api.PlanResponse{Body: io.NopCloser(strings.NewReader(`{"stops":[]}`))}, nil
	}}

	events := collect(t, NewStream(f).Submit(context.Background(), testRequest))
	require.Len(t, events, 1)
	assert.Equal(t, plan.KindValidation, events[0].Err.Kind)
}

func TestStreamDispatcher_CancelClosesWithoutTerminal(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	f := &fakePlanner{open: func(ctx context.Context, req plan.PlanRequest) (*api.PlanResponse, error) {
		return &api.PlanResponse{Body: pr, Streaming: true}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	ch := NewStream(f).Submit(ctx, testRequest)

	go func() {
		_, _ = io.WriteString(pw, `data: {"type":"progress","data":{"progress":10,"step":"decomposing","message":"m"}}`+"\n\n")
	}()
	first := <-ch
	assert.Equal(t, plan.EventProgress, first.Kind)

	cancel()
	rest := collect(t, ch)
	assert.Empty(t, rest)
}

func next(t *testing.T, ch <-chan plan.ProgressEvent) plan.ProgressEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed early")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return plan.ProgressEvent{}
}

func TestSyntheticDispatcher_PlaysScheduleWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	f := &fakePlanner{create: func(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
		<-release
		return &plan.Plan{ID: "p1"}, nil
	}}
	clock := rrtest.NewManualClock()

	ch := NewSynthetic(f, WithClock(clock)).Submit(context.Background(), testRequest)

	progress := []plan.ProgressEvent{next(t, ch)}
	assert.Equal(t, len(DefaultSchedule)-1, clock.Pending())
	for len(progress) < len(DefaultSchedule) {
		clock.Advance(500 * time.Millisecond)
		progress = append(progress, next(t, ch))
	}
	close(release)
	rest := collect(t, ch)

	for i, step := range DefaultSchedule {
		assert.Equal(t, step.Stage, progress[i].Stage)
		assert.Equal(t, step.Percent, progress[i].Percent)
		assert.Equal(t, step.Message, progress[i].Message)
	}
	require.Len(t, rest, 1)
	assert.Equal(t, plan.EventResult, rest[0].Kind)
}

func TestSyntheticDispatcher_PacingScalesSchedule(t *testing.T) {
	f := &fakePlanner{create: func(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	clock := rrtest.NewManualClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewSynthetic(f, WithClock(clock), WithPacing(2)).Submit(ctx, testRequest)
	next(t, ch)

	clock.Advance(999 * time.Millisecond)
	select {
	case ev := <-ch:
		t.Fatalf("step fired before its paced time: %v", ev)
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	assert.Equal(t, plan.StageSearching, next(t, ch).Stage)
}

func TestSyntheticDispatcher_ResultStopsTimers(t *testing.T) {
	f := &fakePlanner{create: func(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
		return &plan.Plan{ID: "fast"}, nil
	}}
	clock := rrtest.NewManualClock()

	events := collect(t, NewSynthetic(f, WithClock(clock)).Submit(context.Background(), testRequest))

	require.Len(t, events, 2, "only the immediate step precedes a fast result")
	assert.Equal(t, plan.StageUnderstanding, events[0].Stage)
	assert.Equal(t, plan.EventResult, events[1].Kind)
	assert.Zero(t, clock.Pending())
}

func TestSyntheticDispatcher_Error(t *testing.T) {
	f := &fakePlanner{create: func(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}

	events := collect(t, NewSynthetic(f, WithClock(rrtest.NewManualClock())).Submit(context.Background(), testRequest))
	last := events[len(events)-1]
	assert.Equal(t, plan.EventError, last.Kind)
	assert.Equal(t, plan.KindNetwork, last.Err.Kind)
	assert.Contains(t, last.Message, "could not reach the planning service")
}

func TestSyntheticDispatcher_Cancel(t *testing.T) {
	f := &fakePlanner{create: func(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	clock := rrtest.NewManualClock()

	ctx, cancel := context.WithCancel(context.Background())
	ch := NewSynthetic(f, WithClock(clock)).Submit(ctx, testRequest)
	assert.Equal(t, plan.StageUnderstanding, next(t, ch).Stage)

	cancel()
	clock.Advance(time.Second)
	for _, ev := range collect(t, ch) {
		assert.False(t, ev.IsTerminal(), "cancelled generations end without a terminal event")
	}
	assert.Zero(t, clock.Pending())
}

func TestAutoDispatcher_FallsBackAfterWholeBody(t *testing.T) {
	f := &fakePlanner{
		open: func(ctx context.Context, req plan.PlanRequest) (*api.PlanResponse, error) {
			return &api.PlanResponse{Body: io.NopCloser(strings.NewReader(planJSON))}, nil
		},
		create: func(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error) {
			return &plan.Plan{ID: "p2"}, nil
		},
	}

	d := NewAuto(f, WithClock(rrtest.NewManualClock()))
	first := collect(t, d.Submit(context.Background(), testRequest))
	require.Equal(t, plan.EventResult, first[len(first)-1].Kind)
	assert.True(t, d.Synthetic())

	second := collect(t, d.Submit(context.Background(), testRequest))
	assert.Equal(t, "p2", second[len(second)-1].Plan.ID)
	assert.EqualValues(t, 1, f.opens.Load())
	assert.EqualValues(t, 1, f.creates.Load())
}

func TestAutoDispatcher_StaysStreaming(t *testing.T) {
	client := sseClient(t, rrtest.CompleteRecord(planJSON))

	d := NewAuto(client)
	collect(t, d.Submit(context.Background(), testRequest))
	assert.False(t, d.Synthetic())
}

func TestNew(t *testing.T) {
	f := &fakePlanner{}

	for mode, want := range map[string]any{
		"auto":      &AutoDispatcher{},
		"":          &AutoDispatcher{},
		"STREAM":    &StreamDispatcher{},
		"synthetic": &SyntheticDispatcher{},
	} {
		d, err := New(mode, f)
		require.NoError(t, err, mode)
		assert.IsType(t, want, d, mode)
	}

	_, err := New("pigeon", f)
	assert.Error(t, err)
}
