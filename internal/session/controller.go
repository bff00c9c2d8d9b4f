package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pablasso/routeright/internal/dispatch"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/progress"
)

// Controller serializes every change to the session. It is safe for
// concurrent use.
type Controller struct {
	dispatcher dispatch.Dispatcher
	logger     *logging.Logger
	metrics    *metrics.Metrics
	clock      Clock
	watchdog   time.Duration

	mu      sync.Mutex
	state   Session
	cancel  context.CancelFunc
	timers  []func() bool
	subs    map[int]chan Session
	nextSub int
	changed chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l.WithComponent("session")
		}
	}
}

// WithWatchdog fails a generation that has not finished within d.
// Zero disables the watchdog.
func WithWatchdog(d time.Duration) Option {
	return func(c *Controller) { c.watchdog = d }
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMetrics records generation metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates an idle controller.
func New(d dispatch.Dispatcher, opts ...Option) *Controller {
	c := &Controller{
		dispatcher: d,
		logger:     logging.Nop(),
		clock:      realClock{},
		state:      idle(0),
		subs:       make(map[int]chan Session),
		changed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate starts a generation for req and returns its id. A running
// generation is abandoned first. An invalid request leaves the session
// untouched.
func (c *Controller) Generate(ctx context.Context, req plan.PlanRequest) (uint64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.state.Status == StatusRunning {
		c.logger.WithGeneration(c.state.GenerationID).Info("generation superseded")
		c.metrics.GenerationReset()
	}
	c.abortLocked()

	gen := c.state.GenerationID + 1
	genCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	initial := progress.Initial()
	c.state = Session{
		GenerationID: gen,
		Status:       StatusRunning,
		Stage:        initial.Stage,
		Percent:      initial.Percent,
		Message:      initial.Message,
		Request:      req,
		StartedAt:    c.clock.Now(),
	}
	if c.watchdog > 0 {
		timeout := plan.NewError(plan.KindTimeout,
			fmt.Sprintf("plan generation timed out after %s", c.watchdog), nil)
		c.scheduleLocked(gen, c.watchdog, plan.Failure(timeout))
	}
	c.publishLocked()
	c.mu.Unlock()

	c.metrics.GenerationStarted()
	c.logger.WithGeneration(gen).Info("generation started", "lat", req.Lat, "lng", req.Lng)

	events := c.dispatcher.Submit(genCtx, req)
	go c.consume(gen, events)

	return gen, nil
}

// Reset abandons any generation and returns to idle. Resetting an idle
// session still invalidates outstanding timers but publishes nothing.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasIdle := c.state.Status == StatusIdle
	if c.state.Status == StatusRunning {
		c.logger.WithGeneration(c.state.GenerationID).Info("generation reset")
		c.metrics.GenerationReset()
	}
	c.abortLocked()
	c.state = idle(c.state.GenerationID + 1)

	if !wasIdle {
		c.publishLocked()
	}
}

// Schedule delivers ev to generation gen after delay. Delivery is dropped
// if gen is no longer live by then.
func (c *Controller) Schedule(gen uint64, delay time.Duration, ev plan.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.liveLocked(gen) {
		return
	}
	c.scheduleLocked(gen, delay, ev)
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel that receives the current session and then
// every update. A slow reader never blocks the controller; it skips to the
// most recent session. Call the returned function to unsubscribe.
func (c *Controller) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Wait blocks until generation gen finishes and returns the final session.
// It returns an error of kind KindStaleGeneration if gen is replaced first.
func (c *Controller) Wait(ctx context.Context, gen uint64) (Session, error) {
	for {
		c.mu.Lock()
		s := c.state
		changed := c.changed
		c.mu.Unlock()

		if s.GenerationID != gen {
			return s, fmt.Errorf("generation %d: %w", gen, plan.ErrStale)
		}
		if s.Terminal() {
			return s, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Close resets the controller and closes every subscription.
func (c *Controller) Close() {
	c.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
}

func (c *Controller) consume(gen uint64, events <-chan plan.ProgressEvent) {
	for ev := range events {
		c.apply(gen, ev)
	}
	c.interrupted(gen)
}

// apply folds ev into the session if gen is still live.
func (c *Controller) apply(gen uint64, ev plan.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.state.GenerationID {
		c.metrics.StaleDropped()
		c.logger.WithGeneration(gen).Debug("dropped stale event",
			"event", ev.String(), "live_generation", c.state.GenerationID)
		return
	}

	cur := progress.Snapshot{Stage: c.state.Stage, Percent: c.state.Percent, Message: c.state.Message}
	if c.state.Status != StatusRunning {
		cur.Stage = terminalStage(c.state.Status)
	}

	next, outcome := progress.Advance(cur, ev)
	switch outcome {
	case progress.Discarded:
		c.logger.WithGeneration(gen).Debug("ignored event after completion", "event", ev.String())

	case progress.Continue:
		if next == cur {
			return
		}
		c.state.Stage, c.state.Percent, c.state.Message = next.Stage, next.Percent, next.Message
		c.publishLocked()

	case progress.Succeeded:
		c.finishLocked(next, ev.Plan, nil)

	case progress.Failed:
		perr := ev.Err
		if perr == nil {
			perr = plan.ErrEmptyMessage
		}
		c.finishLocked(next, nil, perr)
	}
}

// interrupted fails a generation whose event channel closed without a
// terminal event while it was still live.
func (c *Controller) interrupted(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.liveLocked(gen) {
		return
	}
	c.logger.WithGeneration(gen).Warn("event source closed before a result")
	snap := progress.Snapshot{Stage: plan.StageFailed, Percent: c.state.Percent}
	c.finishLocked(snap, nil, plan.ErrStreamEnded)
}

// finishLocked moves the session to a terminal status. Exactly one of a
// plan or an error message is set afterwards.
func (c *Controller) finishLocked(snap progress.Snapshot, p *plan.Plan, perr *plan.Error) {
	if p == nil && perr == nil {
		perr = plan.ErrMissingPlan
		snap.Stage = plan.StageFailed
		snap.Percent = c.state.Percent
	}

	c.state.Stage, c.state.Percent, c.state.Message = snap.Stage, snap.Percent, snap.Message
	outcome := metrics.OutcomeSucceeded
	if p != nil {
		c.state.Status = StatusCompleted
		c.state.Plan = p
		c.state.ErrorMessage = ""
		c.state.ErrorKind = plan.KindUnknown
	} else {
		c.state.Status = StatusFailed
		c.state.Plan = nil
		c.state.ErrorMessage = perr.Message
		if c.state.ErrorMessage == "" {
			c.state.ErrorMessage = plan.ErrEmptyMessage.Message
		}
		c.state.ErrorKind = perr.Kind
		c.state.Message = c.state.ErrorMessage
		outcome = metrics.OutcomeFailed
		if perr.Kind == plan.KindTimeout {
			outcome = metrics.OutcomeTimeout
		}
	}

	elapsed := c.clock.Now().Sub(c.state.StartedAt)
	c.metrics.GenerationFinished(outcome, elapsed)
	logger := c.logger.WithGeneration(c.state.GenerationID)
	if p != nil {
		logger.Info("generation completed", "plan_id", p.ID, "stops", len(p.Stops), "elapsed", elapsed)
	} else {
		logger.Warn("generation failed", "kind", perr.Kind.String(), "error", c.state.ErrorMessage, "elapsed", elapsed)
	}

	c.abortLocked()
	c.publishLocked()
}

func (c *Controller) liveLocked(gen uint64) bool {
	return gen == c.state.GenerationID && c.state.Status == StatusRunning
}

func (c *Controller) scheduleLocked(gen uint64, delay time.Duration, ev plan.ProgressEvent) {
	stop := c.clock.AfterFunc(delay, func() { c.apply(gen, ev) })
	c.timers = append(c.timers, stop)
}

// abortLocked releases the live generation's transport and timers.
func (c *Controller) abortLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for _, stop := range c.timers {
		stop()
	}
	c.timers = nil
}

func (c *Controller) publishLocked() {
	s := c.state
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			// latest wins: replace the unread value
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
	close(c.changed)
	c.changed = make(chan struct{})
}

func terminalStage(status Status) plan.Stage {
	if status == StatusCompleted {
		return plan.StageComplete
	}
	return plan.StageFailed
}
