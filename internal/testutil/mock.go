// Package testutil provides testing utilities for the routeright project.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"
)

// PlanJSON is a valid two-stop plan as the planning service sends it.
const PlanJSON = `{"plan_id":"plan-1","stops":[` +
	`{"id":"s1","name":"Corner Market","category":"grocery","address":"1 Main St","rating":4.5,"eta":"5 min"},` +
	`{"id":"s2","name":"Shell","category":"gas","address":"9 Route 6"}],` +
	`"total_time":"~25m","map_preview_url":"https://maps.example/preview"}`

// ProgressRecord returns a streamed progress record payload.
func ProgressRecord(step string, percent int, message string) string {
	return fmt.Sprintf(`{"type":"progress","data":{"progress":%d,"step":%q,"message":%q,"status":"processing"}}`,
		percent, step, message)
}

// CompleteRecord returns a streamed completion record carrying planJSON.
func CompleteRecord(planJSON string) string {
	return `{"type":"complete","data":` + planJSON + `}`
}

// ErrorRecord returns a streamed error record.
func ErrorRecord(message string) string {
	return fmt.Sprintf(`{"type":"error","data":{"message":%q}}`, message)
}

// SSEServer starts a server answering every request with the given record
// payloads, each framed as "data: <payload>\n\n" and flushed, waiting delay
// between records. It is closed when the test ends.
func SSEServer(t *testing.T, delay time.Duration, records ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for i, rec := range records {
			if i > 0 && delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", rec)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// JSONServer starts a server answering every request with status and body.
func JSONServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ManualClock is a clock that only moves when Advance is called.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	at time.Time
	id int
	f  func()
}

// NewManualClock returns a clock set to a fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{
		now:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		timers: make(map[int]*manualTimer),
	}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run when the clock passes d from now.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.timers[id] = &manualTimer{at: c.now.Add(d), id: id, f: f}

	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.timers[id]; !ok {
			return false
		}
		delete(c.timers, id)
		return true
	}
}

// Advance moves the clock forward and runs due timers in order, on the
// calling goroutine.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for id, t := range c.timers {
		if !t.at.After(c.now) {
			due = append(due, t)
			delete(c.timers, id)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers not yet fired or stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
