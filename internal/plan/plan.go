package plan

import (
	"fmt"
	"strings"
)

// PlanRequest is what the user submits: free-form errands plus where they are.
// It is immutable once handed to a dispatcher.
type PlanRequest struct {
	FreeText string
	Lat      float64
	Lng      float64
}

// Validate checks the request before it is sent to the planning service.
func (r PlanRequest) Validate() error {
	if strings.TrimSpace(r.FreeText) == "" {
		return NewError(KindValidation, "describe at least one errand", nil)
	}
	if r.Lat < -90 || r.Lat > 90 {
		return NewError(KindValidation, fmt.Sprintf("latitude %.6f is out of range", r.Lat), nil)
	}
	if r.Lng < -180 || r.Lng > 180 {
		return NewError(KindValidation, fmt.Sprintf("longitude %.6f is out of range", r.Lng), nil)
	}
	return nil
}

// Plan is an optimized multi-stop route returned by the planning service.
type Plan struct {
	ID              string
	Stops           []Stop
	TotalTime       string
	MapPreviewURL   string
	TotalDistanceKm *float64
}

// Stop is a single place on the route.
type Stop struct {
	ID       string
	Name     string
	Category string
	Address  string
	Rating   *float64
	ETA      string
	MapsURL  string
}

var categoryIcons = map[string]string{
	"grocery":     "🛒",
	"pharmacy":    "💊",
	"bank":        "🏦",
	"gas":         "⛽",
	"coffee":      "☕",
	"restaurant":  "🍽️",
	"shopping":    "🛍️",
	"hardware":    "🛠️",
	"post office": "🏤",
}

// CategoryIcon returns the display icon for the stop's category.
func (s Stop) CategoryIcon() string {
	if icon, ok := categoryIcons[strings.ToLower(strings.TrimSpace(s.Category))]; ok {
		return icon
	}
	return "📍"
}
