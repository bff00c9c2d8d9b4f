package dispatch

import (
	"context"
	"io"

	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/stream"
)

// StreamDispatcher reads progress from the service's streamed response.
type StreamDispatcher struct {
	client Planner
	opts   *options

	// onWholeBody is called when the service answers with a complete JSON
	// plan instead of a stream.
	onWholeBody func()
}

// NewStream creates a streaming dispatcher.
func NewStream(client Planner, opts ...Option) *StreamDispatcher {
	return &StreamDispatcher{client: client, opts: newOptions(opts)}
}

// Submit implements Dispatcher.
func (d *StreamDispatcher) Submit(ctx context.Context, req plan.PlanRequest) <-chan plan.ProgressEvent {
	out := make(chan plan.ProgressEvent, 1)
	go d.run(ctx, req, out)
	return out
}

func (d *StreamDispatcher) run(ctx context.Context, req plan.PlanRequest, out chan<- plan.ProgressEvent) {
	defer close(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := d.client.OpenPlan(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			emit(ctx, out, failure(ctx, err))
		}
		return
	}
	defer resp.Body.Close()

	// a Read blocked on the network only returns once the body is closed
	stop := context.AfterFunc(ctx, func() { resp.Body.Close() })
	defer stop()

	logger := d.opts.logger.With("request_id", resp.RequestID)

	if !resp.Streaming {
		logger.Info("planning service answered without a stream")
		if d.onWholeBody != nil {
			d.onWholeBody()
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			emit(ctx, out, failure(ctx, err))
			return
		}
		p, err := plan.DecodePlan(data)
		if err != nil {
			emit(ctx, out, failure(ctx, err))
			return
		}
		emit(ctx, out, plan.Result(p))
		return
	}

	s := stream.Parse(ctx, resp.Body, d.opts.streamOptions()...)
	for ev := range s.Events() {
		if !emit(ctx, out, ev) {
			return
		}
		if ev.IsTerminal() {
			logger.Debug("stream finished", "event", ev.String(), "dropped", s.Dropped())
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := s.Err(); err != nil {
		logger.Warn("stream read failed", "error", err, "dropped", s.Dropped())
		emit(ctx, out, failure(ctx, err))
		return
	}
	logger.Warn("stream ended without a result", "dropped", s.Dropped())
	emit(ctx, out, plan.Failure(plan.ErrStreamEnded))
}
