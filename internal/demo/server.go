// Package demo serves a fake planning service so the client can be
// exercised without the real backend. Scenarios choose how a generation
// ends and presets choose how fast it gets there.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/plan"
)

// Server is an in-process stand-in for the planning service.
type Server struct {
	cfg    Config
	logger *logging.Logger
	now    func() time.Time
	router chi.Router

	mu       sync.Mutex
	feedback map[string]api.FeedbackRequest
}

// NewServer creates a demo backend. logger may be nil.
func NewServer(cfg Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger.WithComponent("demo"),
		now:      time.Now,
		feedback: make(map[string]api.FeedbackRequest),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Post(api.PathPlan, s.handlePlan)
	r.Post(api.PathFeedback, s.handleFeedback)
	r.Get(api.PathHealth, s.handleHealth)
	s.router = r

	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Feedback returns the feedback stored for planID.
func (s *Server) Feedback(planID string) (api.FeedbackRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb, ok := s.feedback[planID]
	return fb, ok
}

// Listen binds addr and returns the listener with the base URL clients
// should use. Port 0 picks a free port.
func Listen(addr string) (net.Listener, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, "http://" + ln.Addr().String(), nil
}

// Serve answers requests on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("demo backend listening", "addr", ln.Addr().String(),
			"scenario", string(s.cfg.Scenario), "preset", string(s.cfg.Preset), "streaming", s.cfg.Streaming)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("demo request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"request_id", r.Header.Get(api.HeaderRequestID), "elapsed", s.now().Sub(start))
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var body plan.RequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req := plan.PlanRequest{FreeText: body.UserText, Lat: body.Lat, Lng: body.Lng}
	if err := req.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, plan.UserMessage(err))
		return
	}

	p, errands, err := BuildPlan(req)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to generate plan: "+err.Error())
		return
	}

	if s.cfg.Streaming {
		s.streamPlan(w, r, p, errands)
		return
	}
	s.blockingPlan(w, r, p)
}

// streamPlan writes one record per step, pausing StepDelay between them.
func (s *Server) streamPlan(w http.ResponseWriter, r *http.Request, p *plan.Plan, errands int) {
	records, err := Records(s.cfg.Scenario, p, errands)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to generate plan: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", api.ContentTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for i, rec := range records {
		if i > 0 && !s.pause(r.Context()) {
			s.logger.Debug("client went away", "plan_id", p.ID, "sent", i)
			return
		}
		if s.cfg.Scenario == ScenarioMalformed && i == 0 {
			fmt.Fprint(w, ": keep-alive\n\n")
		}
		fmt.Fprintf(w, "data: %s\n\n", rec)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// blockingPlan waits for the whole pipeline and answers with one body.
func (s *Server) blockingPlan(w http.ResponseWriter, r *http.Request, p *plan.Plan) {
	for range progressSteps {
		if !s.pause(r.Context()) {
			return
		}
	}

	switch s.cfg.Scenario {
	case ScenarioFail:
		writeDetail(w, http.StatusInternalServerError, "Failed to generate plan: "+FailureMessage)
	case ScenarioMalformed:
		w.Header().Set("Content-Type", api.ContentTypeJSON)
		fmt.Fprintf(w, `{"plan_id":%q,"stops":[{"id":`, p.ID)
	default:
		body, err := planBody(s.cfg.Scenario, p)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Failed to generate plan: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", api.ContentTypeJSON)
		w.Write(body)
	}
}

func (s *Server) pause(ctx context.Context) bool {
	if s.cfg.StepDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.cfg.StepDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var fb api.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid feedback body")
		return
	}
	if fb.PlanID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "plan_id is required")
		return
	}
	if fb.OverallRating < 1 || fb.OverallRating > 5 {
		writeDetail(w, http.StatusUnprocessableEntity, "overall_rating must be between 1 and 5")
		return
	}

	s.mu.Lock()
	s.feedback[fb.PlanID] = fb
	s.mu.Unlock()

	s.logger.Info("feedback received", "plan_id", fb.PlanID, "rating", fb.OverallRating)
	writeJSON(w, http.StatusOK, api.FeedbackResponse{Status: "success", Message: "Feedback received"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", api.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, plan.ErrorBody{Detail: detail})
}
