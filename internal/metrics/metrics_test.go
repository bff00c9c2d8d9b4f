package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.GenerationStarted()
	m.GenerationStarted()
	m.GenerationFinished(OutcomeSucceeded, 3*time.Second)
	m.GenerationFinished(OutcomeTimeout, time.Minute)
	m.GenerationReset()
	m.RecordDropped()
	m.StaleDropped()
	m.StaleDropped()
	m.Request("plan", "200")
	m.Feedback(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsFinished.WithLabelValues(OutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsFinished.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsReset))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamRecordsDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StaleEventsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("plan", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedbackSubmitted.WithLabelValues("failed")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GenerationStarted()
		m.GenerationFinished(OutcomeFailed, time.Second)
		m.GenerationReset()
		m.RecordDropped()
		m.StaleDropped()
		m.Request("plan", "error")
		m.Feedback(true)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordDropped()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "routeright_stream_records_dropped_total 1")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.StaleDropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.StaleEventsDropped))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StaleEventsDropped))
}
