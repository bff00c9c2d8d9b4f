package demo

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/util"
)

// Errand is one task extracted from the user's text.
type Errand struct {
	Category string
	Query    string
}

// keywords maps words in the request onto place categories.
var keywords = map[string]string{
	"grocery":      "grocery",
	"groceries":    "grocery",
	"milk":         "grocery",
	"bread":        "grocery",
	"eggs":         "grocery",
	"pharmacy":     "pharmacy",
	"medicine":     "pharmacy",
	"prescription": "pharmacy",
	"bank":         "bank",
	"cash":         "bank",
	"atm":          "bank",
	"deposit":      "bank",
	"gas":          "gas",
	"fuel":         "gas",
	"coffee":       "coffee",
	"latte":        "coffee",
	"restaurant":   "restaurant",
	"lunch":        "restaurant",
	"dinner":       "restaurant",
	"hardware":     "hardware",
	"screws":       "hardware",
	"paint":        "hardware",
	"post office":  "post office",
	"mail":         "post office",
	"package":      "post office",
	"stamps":       "post office",
	"shopping":     "shopping",
	"clothes":      "shopping",
}

type place struct {
	Name    string
	Address string
	Rating  float64
}

var places = map[string]place{
	"grocery":     {"Corner Market", "14 Main St", 4.4},
	"pharmacy":    {"Walgreens", "220 Elm Ave", 4.1},
	"bank":        {"First Community Bank", "8 Court Sq", 4.0},
	"gas":         {"Shell", "901 Route 6", 3.9},
	"coffee":      {"Blue Door Coffee", "33 Mill St", 4.7},
	"restaurant":  {"Luigi's Trattoria", "57 Harbor Rd", 4.5},
	"hardware":    {"Ace Hardware", "410 Industrial Pkwy", 4.3},
	"post office": {"US Post Office", "2 Federal Plaza", 3.6},
	"shopping":    {"Riverside Outlets", "1200 River Dr", 4.2},
}

// Decompose splits text into errands in the order they are mentioned. Text
// that names no known errand becomes a single general errand.
func Decompose(text string) []Errand {
	lower := strings.ToLower(text)

	type hit struct {
		at       int
		category string
		word     string
	}
	var hits []hit
	for word, category := range keywords {
		if at := strings.Index(lower, word); at >= 0 {
			hits = append(hits, hit{at: at, category: category, word: word})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].at == hits[j].at {
			return hits[i].word < hits[j].word
		}
		return hits[i].at < hits[j].at
	})

	seen := make(map[string]bool)
	var errands []Errand
	for _, h := range hits {
		if seen[h.category] {
			continue
		}
		seen[h.category] = true
		errands = append(errands, Errand{Category: h.category, Query: h.word})
	}

	if len(errands) == 0 {
		errands = append(errands, Errand{Category: "general", Query: strings.TrimSpace(text)})
	}
	return errands
}

// BuildPlan builds a route through one place per errand.
func BuildPlan(req plan.PlanRequest) (*plan.Plan, int, error) {
	errands := Decompose(req.FreeText)

	p := &plan.Plan{
		ID:        uuid.NewString(),
		Stops:     make([]plan.Stop, 0, len(errands)),
		TotalTime: util.EstimateTotalTime(len(errands)),
	}

	var distance float64
	destinations := make([]string, 0, len(errands))
	for i, e := range errands {
		pl, ok := places[e.Category]
		if !ok {
			pl = place{Name: "Nearby " + util.Truncate(e.Query, 40), Address: "Near you", Rating: 4.0}
		}
		id, err := util.StopID(e.Category)
		if err != nil {
			return nil, 0, fmt.Errorf("stop id: %w", err)
		}

		rating := pl.Rating
		query := pl.Name + ", " + pl.Address
		p.Stops = append(p.Stops, plan.Stop{
			ID:       id,
			Name:     pl.Name,
			Category: e.Category,
			Address:  pl.Address,
			Rating:   &rating,
			ETA:      fmt.Sprintf("%d min", 15+35*i),
			MapsURL:  "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(query),
		})
		destinations = append(destinations, query)
		distance += 0.8 + 1.2*float64(i)
	}

	total := math.Round(distance*100) / 100
	p.TotalDistanceKm = &total
	p.MapPreviewURL = directionsURL(req, destinations)
	return p, len(errands), nil
}

func directionsURL(req plan.PlanRequest, destinations []string) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", fmt.Sprintf("%f,%f", req.Lat, req.Lng))
	if n := len(destinations); n > 0 {
		q.Set("destination", destinations[n-1])
		if n > 1 {
			q.Set("waypoints", strings.Join(destinations[:n-1], "|"))
		}
	}
	return "https://www.google.com/maps/dir/?" + q.Encode()
}
