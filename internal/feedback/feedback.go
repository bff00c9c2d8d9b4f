// Package feedback builds and submits ratings for a finished plan.
//
// Feedback lives outside the session: a failed submission is reported to
// the user and never changes the plan being shown.
package feedback

import (
	"context"
	"strings"
	"time"

	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/plan"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrNoRating is returned when the rating is missing or out of range.
	ErrNoRating = plan.NewError(plan.KindValidation, "Please provide a rating before submitting.", nil)
	// ErrNoPlan is returned when there is nothing to rate.
	ErrNoPlan = plan.NewError(plan.KindValidation, "There is no plan to rate.", nil)
)

// submitFailed is the message shown when the service rejects feedback.
const submitFailed = "Failed to submit feedback. Please try again."

// Submitter sends feedback to the planning service.
type Submitter interface {
	SubmitFeedback(ctx context.Context, fb api.FeedbackRequest) (*api.FeedbackResponse, error)
}

// Build assembles the request for p. Every stop gets the overall rating and
// is marked visited.
func Build(p *plan.Plan, rating int, comments string, now time.Time) (api.FeedbackRequest, error) {
	if p == nil || p.ID == "" {
		return api.FeedbackRequest{}, ErrNoPlan
	}
	if rating < MinRating || rating > MaxRating {
		return api.FeedbackRequest{}, ErrNoRating
	}

	stops := make([]api.StopFeedback, 0, len(p.Stops))
	for _, s := range p.Stops {
		stops = append(stops, api.StopFeedback{
			StopID:  s.ID,
			Rating:  rating,
			Visited: true,
		})
	}

	req := api.FeedbackRequest{
		PlanID:        p.ID,
		OverallRating: rating,
		StopsFeedback: stops,
		CreatedAt:     now.UTC().Format(time.RFC3339),
	}
	if c := strings.TrimSpace(comments); c != "" {
		req.Comments = &c
	}
	return req, nil
}

// Service submits feedback and records the outcome.
type Service struct {
	client  Submitter
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService creates a Service. m and logger may be nil.
func NewService(client Submitter, m *metrics.Metrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		client:  client,
		metrics: m,
		logger:  logger.WithComponent("feedback"),
		now:     time.Now,
	}
}

// Submit rates p. Validation errors are returned before anything is sent.
func (s *Service) Submit(ctx context.Context, p *plan.Plan, rating int, comments string) (*api.FeedbackResponse, error) {
	req, err := Build(p, rating, comments, s.now())
	if err != nil {
		return nil, err
	}

	resp, err := s.client.SubmitFeedback(ctx, req)
	if err != nil {
		s.metrics.Feedback(false)
		s.logger.Warn("feedback submission failed", "plan_id", req.PlanID, "error", err)
		return nil, plan.NewError(plan.KindNetwork, submitFailed, err)
	}

	s.metrics.Feedback(true)
	s.logger.Info("feedback submitted", "plan_id", req.PlanID, "rating", rating, "stops", len(req.StopsFeedback))
	return resp, nil
}
