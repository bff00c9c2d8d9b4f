package api

// Endpoint paths on the planning service.
const (
	PathPlan     = "/plan"
	PathFeedback = "/feedback"
	PathHealth   = "/health"
)

// Content types the client negotiates.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	PlanID        string         `json:"plan_id"`
	OverallRating int            `json:"overall_rating"`
	StopsFeedback []StopFeedback `json:"stops_feedback"`
	Comments      *string        `json:"comments"`
	CreatedAt     string         `json:"created_at"`
}

// StopFeedback rates a single stop of a plan.
type StopFeedback struct {
	StopID  string   `json:"stop_id"`
	Rating  int      `json:"rating"`
	Visited bool     `json:"visited"`
	Issues  []string `json:"issues"`
}

// FeedbackResponse is the service's acknowledgement.
type FeedbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Healthy reports whether the service considers itself up.
func (h *HealthResponse) Healthy() bool {
	return h != nil && (h.Status == "healthy" || h.Status == "ok")
}
