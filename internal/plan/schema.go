package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RequestBody is the wire form of a PlanRequest for POST /plan.
type RequestBody struct {
	UserText string  `json:"user_text"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Body returns the wire form of the request.
func (r PlanRequest) Body() RequestBody {
	return RequestBody{UserText: r.FreeText, Lat: r.Lat, Lng: r.Lng}
}

// Wire is the plan JSON shape accepted at the boundary.
type Wire struct {
	PlanID        wireID     `json:"plan_id"`
	Stops         []WireStop `json:"stops"`
	TotalTime     *string    `json:"total_time,omitempty"`
	MapPreviewURL *string    `json:"map_preview_url,omitempty"`
	TotalDistance *float64   `json:"total_distance,omitempty"`
	DistanceKm    *float64   `json:"total_distance_km,omitempty"`
	Success       *bool      `json:"success,omitempty"`
	ErrorText     *string    `json:"error,omitempty"`
	MessageText   *string    `json:"message,omitempty"`
}

// WireStop is a stop as it appears on the wire.
type WireStop struct {
	ID            wireID   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Address       string   `json:"address"`
	Rating        *float64 `json:"rating,omitempty"`
	ETA           *string  `json:"eta,omitempty"`
	GoogleMapsURL *string  `json:"google_maps_url,omitempty"`
}

// wireID accepts both string and numeric identifiers.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = wireID(n.String())
	return nil
}

// DecodePlan decodes and validates a plan payload.
// Any schema violation is reported as a KindValidation error.
func DecodePlan(data []byte) (*Plan, error) {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, NewError(KindValidation, "planning service returned an unreadable plan", err)
	}
	return w.ToPlan()
}

// LooksLikePlan reports whether a decoded JSON object carries plan fields.
func LooksLikePlan(obj map[string]json.RawMessage) bool {
	_, hasID := obj["plan_id"]
	_, hasStops := obj["stops"]
	return hasID || hasStops
}

// ToPlan validates the wire plan and converts it to the domain type.
func (w Wire) ToPlan() (*Plan, error) {
	if w.Success != nil && !*w.Success {
		msg := "planning service could not build a route"
		if w.ErrorText != nil && *w.ErrorText != "" {
			msg = *w.ErrorText
		} else if w.MessageText != nil && *w.MessageText != "" {
			msg = *w.MessageText
		}
		return nil, NewError(KindValidation, msg, nil)
	}

	var missing []string
	if strings.TrimSpace(string(w.PlanID)) == "" {
		missing = append(missing, "plan_id")
	}
	if w.Stops == nil {
		missing = append(missing, "stops")
	}
	for i, s := range w.Stops {
		if strings.TrimSpace(string(s.ID)) == "" {
			missing = append(missing, "stops["+strconv.Itoa(i)+"].id")
		}
		if strings.TrimSpace(s.Name) == "" {
			missing = append(missing, "stops["+strconv.Itoa(i)+"].name")
		}
	}
	if len(missing) > 0 {
		return nil, NewError(KindValidation,
			"planning service returned an incomplete plan (missing "+strings.Join(missing, ", ")+")", nil)
	}

	p := &Plan{
		ID:              string(w.PlanID),
		Stops:           make([]Stop, len(w.Stops)),
		TotalTime:       deref(w.TotalTime),
		MapPreviewURL:   deref(w.MapPreviewURL),
		TotalDistanceKm: w.TotalDistance,
	}
	if p.TotalDistanceKm == nil {
		p.TotalDistanceKm = w.DistanceKm
	}
	for i, s := range w.Stops {
		p.Stops[i] = Stop{
			ID:       string(s.ID),
			Name:     s.Name,
			Category: s.Category,
			Address:  s.Address,
			Rating:   s.Rating,
			ETA:      deref(s.ETA),
			MapsURL:  deref(s.GoogleMapsURL),
		}
	}
	return p, nil
}

// FromPlan converts a domain plan back to its wire form.
func FromPlan(p *Plan) Wire {
	w := Wire{
		PlanID:        wireID(p.ID),
		Stops:         make([]WireStop, len(p.Stops)),
		TotalDistance: p.TotalDistanceKm,
	}
	if p.TotalTime != "" {
		w.TotalTime = &p.TotalTime
	}
	if p.MapPreviewURL != "" {
		w.MapPreviewURL = &p.MapPreviewURL
	}
	for i, s := range p.Stops {
		ws := WireStop{
			ID:       wireID(s.ID),
			Name:     s.Name,
			Category: s.Category,
			Address:  s.Address,
			Rating:   s.Rating,
		}
		if s.ETA != "" {
			eta := s.ETA
			ws.ETA = &eta
		}
		if s.MapsURL != "" {
			u := s.MapsURL
			ws.GoogleMapsURL = &u
		}
		w.Stops[i] = ws
	}
	return w
}

// ErrorBody is the body of a non-success response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// DecodeDetail extracts the server-provided message from an error body.
// Returns "" if the body carries none.
func DecodeDetail(data []byte) string {
	var body ErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Detail)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
