package session

import "time"

// Clock abstracts time for the controller's deferred deliveries.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f after d and returns a function that cancels the call
	// if it has not started yet.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
