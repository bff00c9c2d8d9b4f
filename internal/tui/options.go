package tui

import (
	"context"

	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/geo"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/session"
)

// Generator runs plan generations and publishes the session.
// *session.Controller implements it.
type Generator interface {
	Generate(ctx context.Context, req plan.PlanRequest) (uint64, error)
	Reset()
	Subscribe() (<-chan session.Session, func())
}

// FeedbackSubmitter rates a finished plan. *feedback.Service implements it.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, p *plan.Plan, rating int, comments string) (*api.FeedbackResponse, error)
}

// HealthChecker probes the planning service. *api.Client implements it.
type HealthChecker interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// Options configures TUI startup behavior.
type Options struct {
	Generator Generator
	Locator   geo.Locator
	Feedback  FeedbackSubmitter
	Health    HealthChecker // optional
	Logger    *logging.Logger

	// InitialText pre-fills the errand field.
	InitialText string
}
