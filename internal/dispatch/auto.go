package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/pablasso/routeright/internal/plan"
)

// AutoDispatcher streams until the service shows it cannot, then switches
// to synthetic progress for the rest of its lifetime.
type AutoDispatcher struct {
	stream    *StreamDispatcher
	synthetic *SyntheticDispatcher
	fallback  atomic.Bool
}

// NewAuto creates an auto-selecting dispatcher.
func NewAuto(client Planner, opts ...Option) *AutoDispatcher {
	d := &AutoDispatcher{
		stream:    NewStream(client, opts...),
		synthetic: NewSynthetic(client, opts...),
	}
	d.stream.onWholeBody = func() {
		if d.fallback.CompareAndSwap(false, true) {
			d.stream.opts.logger.Info("falling back to synthetic progress")
		}
	}
	return d
}

// Submit implements Dispatcher.
func (d *AutoDispatcher) Submit(ctx context.Context, req plan.PlanRequest) <-chan plan.ProgressEvent {
	if d.fallback.Load() {
		return d.synthetic.Submit(ctx, req)
	}
	return d.stream.Submit(ctx, req)
}

// Synthetic reports whether the dispatcher has fallen back.
func (d *AutoDispatcher) Synthetic() bool {
	return d.fallback.Load()
}
