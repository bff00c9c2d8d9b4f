package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pablasso/routeright/internal/logging"
)

// HTTPLookup asks an IP-geolocation endpoint for coordinates. The endpoint
// must answer GET with {"lat","lng"} or {"latitude","longitude"}.
type HTTPLookup struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

type lookupResponse struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r lookupResponse) coordinates() (Coordinates, bool) {
	lat := firstSet(r.Lat, r.Latitude)
	lng := firstSet(r.Lng, r.Lon, r.Longitude)
	if lat == nil || lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *lat, Lng: *lng}, true
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// CurrentLocation performs the lookup.
func (h *HTTPLookup) CurrentLocation(ctx context.Context) (Coordinates, error) {
	if h.URL == "" {
		return Coordinates{}, &LocationError{Reason: Unavailable, Err: errors.New("no lookup URL configured")}
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return Coordinates{}, &LocationError{Reason: Unavailable, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	hc := h.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := h.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Coordinates{}, &LocationError{Reason: Timeout, Err: err}
		}
		return Coordinates{}, &LocationError{Reason: Unavailable, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Coordinates{}, &LocationError{Reason: PermissionDenied, Err: fmt.Errorf("lookup returned HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return Coordinates{}, &LocationError{Reason: Unavailable, Err: fmt.Errorf("lookup returned HTTP %d", resp.StatusCode)}
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return Coordinates{}, &LocationError{Reason: Unavailable, Err: fmt.Errorf("decode lookup response: %w", err)}
	}
	coords, ok := body.coordinates()
	if !ok || !coords.Valid() {
		return Coordinates{}, &LocationError{Reason: Unavailable, Err: errors.New("lookup response has no usable coordinates")}
	}

	logger.WithComponent("geo").Debug("location resolved", "lat", coords.Lat, "lng", coords.Lng)
	return coords, nil
}
