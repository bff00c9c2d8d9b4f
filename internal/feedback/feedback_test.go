package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablasso/routeright/internal/api"
	"github.com/pablasso/routeright/internal/metrics"
	"github.com/pablasso/routeright/internal/plan"
)

var samplePlan = &plan.Plan{
	ID: "plan-1",
	Stops: []plan.Stop{
		{ID: "s1", Name: "Corner Market"},
		{ID: "s2", Name: "Shell"},
	},
}

type fakeSubmitter struct {
	got []api.FeedbackRequest
	err error
}

func (f *fakeSubmitter) SubmitFeedback(ctx context.Context, fb api.FeedbackRequest) (*api.FeedbackResponse, error) {
	f.got = append(f.got, fb)
	if f.err != nil {
		return nil, f.err
	}
	return &api.FeedbackResponse{Status: "success", Message: "Feedback received"}, nil
}

func TestBuild_WireShape(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	req, err := Build(samplePlan, 4, "  ", now)
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"plan_id": "plan-1",
		"overall_rating": 4,
		"stops_feedback": [
			{"stop_id": "s1", "rating": 4, "visited": true, "issues": null},
			{"stop_id": "s2", "rating": 4, "visited": true, "issues": null}
		],
		"comments": null,
		"created_at": "2026-03-04T05:06:07Z"
	}`, string(data))
}

func TestBuild_Comments(t *testing.T) {
	req, err := Build(samplePlan, 5, " great route ", time.Now())
	require.NoError(t, err)
	require.NotNil(t, req.Comments)
	assert.Equal(t, "great route", *req.Comments)
}

func TestBuild_Validation(t *testing.T) {
	_, err := Build(samplePlan, 0, "", time.Now())
	assert.ErrorIs(t, err, ErrNoRating)

	_, err = Build(samplePlan, 6, "", time.Now())
	assert.ErrorIs(t, err, ErrNoRating)

	_, err = Build(nil, 3, "", time.Now())
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestService_Submit(t *testing.T) {
	m := metrics.New()
	sub := &fakeSubmitter{}
	svc := NewService(sub, m, nil)

	resp, err := svc.Submit(context.Background(), samplePlan, 3, "")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	require.Len(t, sub.got, 1)
	assert.Equal(t, "plan-1", sub.got[0].PlanID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedbackSubmitted.WithLabelValues("ok")))
}

func TestService_SubmitFailureIsReported(t *testing.T) {
	m := metrics.New()
	sub := &fakeSubmitter{err: errors.New("connection refused")}
	svc := NewService(sub, m, nil)

	_, err := svc.Submit(context.Background(), samplePlan, 3, "")
	require.Error(t, err)
	assert.Equal(t, "Failed to submit feedback. Please try again.", plan.UserMessage(err))
	assert.True(t, plan.IsKind(err, plan.KindNetwork))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedbackSubmitted.WithLabelValues("failed")))
}

func TestService_ValidationSendsNothing(t *testing.T) {
	sub := &fakeSubmitter{}
	_, err := NewService(sub, nil, nil).Submit(context.Background(), samplePlan, 0, "")
	assert.ErrorIs(t, err, ErrNoRating)
	assert.Empty(t, sub.got)
}
