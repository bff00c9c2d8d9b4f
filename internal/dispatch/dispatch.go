// Package dispatch issues plan generation requests and presents every
// transport strategy as the same event channel.
//
// Each Submit yields zero or more progress events followed by exactly one
// terminal event, then the channel closes. Cancelling the context closes
// the channel without a terminal event.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/stream"
)

// Modes accepted by New.
const (
	ModeAuto      = "auto"
	ModeStream    = "stream"
	ModeSynthetic = "synthetic"
)

// Dispatcher starts one plan generation per Submit.
type Dispatcher interface {
	Submit(ctx context.Context, req plan.PlanRequest) <-chan plan.ProgressEvent
}

// Func adapts a function to the Dispatcher interface.
type Func func(ctx context.Context, req plan.PlanRequest) <-chan plan.ProgressEvent

// Submit calls f.
func (f Func) Submit(ctx context.Context, req plan.PlanRequest) <-chan plan.ProgressEvent {
	return f(ctx, req)
}

// Planner is the part of the API client the dispatchers use.
type Planner interface {
	OpenPlan(ctx context.Context, req plan.PlanRequest) (*api.PlanResponse, error)
	CreatePlan(ctx context.Context, req plan.PlanRequest) (*plan.Plan, error)
}

type options struct {
	logger     *logging.Logger
	metrics    *metrics.Metrics
	maxRecord  int
	schedule   []Step
	pacing     float64
	clock      Clock
}

// Option configures a dispatcher.
type Option func(*options)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithComponent("dispatch")
		}
	}
}

// WithMetrics counts dropped stream records on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMaxRecordSize caps a single stream record.
func WithMaxRecordSize(n int) Option {
	return func(o *options) { o.maxRecord = n }
}

// WithSchedule replaces the synthetic progress schedule.
func WithSchedule(steps []Step) Option {
	return func(o *options) { o.schedule = steps }
}

// WithPacing scales the synthetic schedule; 2.0 is twice as slow.
func WithPacing(factor float64) Option {
	return func(o *options) {
		if factor > 0 {
			o.pacing = factor
		}
	}
}

// WithClock sets the clock that paces the synthetic schedule.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:   logging.Nop(),
		schedule: DefaultSchedule,
		pacing:   1.0,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) streamOptions() []stream.Option {
	opts := []stream.Option{stream.WithMetrics(o.metrics), stream.WithLogger(o.logger)}
	if o.maxRecord > 0 {
		opts = append(opts, stream.WithMaxRecordSize(o.maxRecord))
	}
	return opts
}

// New returns the dispatcher for mode.
func New(mode string, client Planner, opts ...Option) (Dispatcher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeAuto, "":
		return NewAuto(client, opts...), nil
	case ModeStream:
		return NewStream(client, opts...), nil
	case ModeSynthetic:
		return NewSynthetic(client, opts...), nil
	}
	return nil, fmt.Errorf("unknown dispatch mode %q (want %s, %s or %s)", mode, ModeAuto, ModeStream, ModeSynthetic)
}

// emit delivers ev unless ctx is done. It reports whether ev was delivered.
func emit(ctx context.Context, out chan<- plan.ProgressEvent, ev plan.ProgressEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// failure converts any error into a terminal event.
func failure(ctx context.Context, err error) plan.ProgressEvent {
	var perr *plan.Error
	if errors.As(err, &perr) {
		return plan.Failure(perr)
	}
	if errors.As(api.Classify(ctx, err), &perr) {
		return plan.Failure(perr)
	}
	return plan.Failure(plan.NewError(plan.KindUnknown, err.Error(), err))
}
