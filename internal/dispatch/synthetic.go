package dispatch

import (
	"context"
	"time"

	"github.com/pablasso/routeright/internal/plan"
)

// Step is one scheduled synthetic progress event.
type Step struct {
	At      time.Duration
	Stage   plan.Stage
	Percent int
	Message string
}

// DefaultSchedule is shown while a blocking request is outstanding.
var DefaultSchedule = []Step{
	{At: 0, Stage: plan.StageUnderstanding, Percent: 20, Message: "Understanding your request..."},
	{At: 500 * time.Millisecond, Stage: plan.StageSearching, Percent: 40, Message: "Searching for places..."},
	{At: 1000 * time.Millisecond, Stage: plan.StageValidating, Percent: 60, Message: "Validating options..."},
	{At: 1500 * time.Millisecond, Stage: plan.StageOptimizing, Percent: 80, Message: "Optimizing route..."},
}

// SyntheticDispatcher issues a blocking request and plays a fixed progress
// schedule while it waits.
type SyntheticDispatcher struct {
	client Planner
	opts   *options
}

// NewSynthetic creates a synthetic-progress dispatcher.
func NewSynthetic(client Planner, opts ...Option) *SyntheticDispatcher {
	return &SyntheticDispatcher{client: client, opts: newOptions(opts)}
}

type planResult struct {
	plan *plan.Plan
	err  error
}

// Clock arms the synthetic schedule's timers.
type Clock interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Submit implements Dispatcher.
func (d *SyntheticDispatcher) Submit(ctx context.Context, req plan.PlanRequest) <-chan plan.ProgressEvent {
	out := make(chan plan.ProgressEvent, 1)
	go d.run(ctx, req, out)
	return out
}

func (d *SyntheticDispatcher) run(ctx context.Context, req plan.PlanRequest, out chan<- plan.ProgressEvent) {
	defer close(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan planResult, 1)
	go func() {
		p, err := d.client.CreatePlan(ctx, req)
		done <- planResult{plan: p, err: err}
	}()

	// Every timer is armed before the first event is emitted.
	ticks := make(chan Step, len(d.opts.schedule))
	var immediate []Step
	var stops []func() bool
	for _, step := range d.opts.schedule {
		step := step
		wait := d.scale(step.At)
		if wait <= 0 {
			immediate = append(immediate, step)
			continue
		}
		stops = append(stops, d.opts.clock.AfterFunc(wait, func() { ticks <- step }))
	}
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	for _, step := range immediate {
		if !emit(ctx, out, plan.Progress(step.Stage, step.Percent, step.Message)) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case r := <-done:
			if ctx.Err() != nil {
				return
			}
			if r.err != nil {
				d.opts.logger.Debug("blocking plan request failed", "error", r.err)
				emit(ctx, out, failure(ctx, r.err))
				return
			}
			emit(ctx, out, plan.Result(r.plan))
			return

		case step := <-ticks:
			if !emit(ctx, out, plan.Progress(step.Stage, step.Percent, step.Message)) {
				return
			}
		}
	}
}

func (d *SyntheticDispatcher) scale(at time.Duration) time.Duration {
	return time.Duration(float64(at) * d.opts.pacing)
}
