// Package geo acquires the user's coordinates for plan requests.
//
// A location failure blocks submission only. It is reported to the user and
// can be retried without touching any generation.
package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pablasso/routeright/internal/plan"
)

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 10 * time.Second

// DefaultMaxAge is how long a cached location stays fresh.
const DefaultMaxAge = 5 * time.Minute

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is within range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// Locator returns the user's current location.
type Locator interface {
	CurrentLocation(ctx context.Context) (Coordinates, error)
}

// Reason says why a location could not be obtained.
type Reason int

const (
	Unavailable Reason = iota
	PermissionDenied
	Timeout
)

func (r Reason) String() string {
	switch r {
	case PermissionDenied:
		return "permission denied"
	case Timeout:
		return "timeout"
	}
	return "unavailable"
}

// LocationError is returned by every Locator. It unwraps to a *plan.Error
// of kind KindLocation.
type LocationError struct {
	Reason Reason
	Err    error
}

// Message is the text shown on the input screen.
func (e *LocationError) Message() string {
	switch e.Reason {
	case PermissionDenied:
		return "Location access was denied. Set a location with --lat and --lng and try again."
	case Timeout:
		return "Timed out while getting your location. Please try again."
	}
	return "Unable to get location. Please enable location services and try again."
}

func (e *LocationError) Error() string {
	if e.Err != nil {
		return "location " + e.Reason.String() + ": " + e.Err.Error()
	}
	return "location " + e.Reason.String()
}

func (e *LocationError) Unwrap() error {
	return plan.NewError(plan.KindLocation, e.Message(), e.Err)
}

// ReasonOf returns the reason of the first *LocationError in err's chain,
// or Unavailable.
func ReasonOf(err error) Reason {
	var le *LocationError
	if errors.As(err, &le) {
		return le.Reason
	}
	return Unavailable
}

// Static always returns the same coordinates.
type Static struct {
	Coordinates Coordinates
}

// CurrentLocation returns the configured coordinates.
func (s Static) CurrentLocation(ctx context.Context) (Coordinates, error) {
	if !s.Coordinates.Valid() {
		return Coordinates{}, &LocationError{Reason: Unavailable, Err: fmt.Errorf("invalid coordinates %s", s.Coordinates)}
	}
	return s.Coordinates, nil
}

// Chain tries each locator in order and returns the first success. When all
// fail, the last error is returned.
type Chain []Locator

// CurrentLocation queries the chain.
func (c Chain) CurrentLocation(ctx context.Context) (Coordinates, error) {
	var lastErr error = &LocationError{Reason: Unavailable, Err: errors.New("no location source configured")}
	for _, l := range c {
		if l == nil {
			continue
		}
		coords, err := l.CurrentLocation(ctx)
		if err == nil {
			return coords, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Coordinates{}, lastErr
}

// Cached remembers a successful lookup for MaxAge. Failures are not cached.
type Cached struct {
	Locator Locator
	MaxAge  time.Duration
	Now     func() time.Time

	mu      sync.Mutex
	coords  Coordinates
	fetched time.Time
	ok      bool
}

// NewCached wraps l with DefaultMaxAge.
func NewCached(l Locator) *Cached {
	return &Cached{Locator: l, MaxAge: DefaultMaxAge}
}

// CurrentLocation returns the cached value while fresh.
func (c *Cached) CurrentLocation(ctx context.Context) (Coordinates, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	c.mu.Lock()
	if c.ok && now().Sub(c.fetched) < c.MaxAge {
		coords := c.coords
		c.mu.Unlock()
		return coords, nil
	}
	c.mu.Unlock()

	coords, err := c.Locator.CurrentLocation(ctx)
	if err != nil {
		return Coordinates{}, err
	}

	c.mu.Lock()
	c.coords, c.fetched, c.ok = coords, now(), true
	c.mu.Unlock()
	return coords, nil
}

// Forget drops the cached value so the next call performs a lookup.
func (c *Cached) Forget() {
	c.mu.Lock()
	c.ok = false
	c.mu.Unlock()
}
