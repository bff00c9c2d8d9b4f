package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoStopPlan = `{
  "plan_id": "plan-42",
  "stops": [
    {"id": "s1", "name": "Corner Market", "category": "grocery", "address": "1 Main St", "rating": 4.5, "eta": "5 min", "google_maps_url": "https://maps.example/s1"},
    {"id": 2, "name": "Shell", "category": "gas", "address": "9 Route 6"}
  ],
  "total_time": "~25m",
  "map_preview_url": "https://maps.example/preview"
}`

func TestDecodePlan_Complete(t *testing.T) {
	p, err := DecodePlan([]byte(twoStopPlan))
	require.NoError(t, err)

	assert.Equal(t, "plan-42", p.ID)
	require.Len(t, p.Stops, 2)
	assert.Equal(t, "Corner Market", p.Stops[0].Name)
	require.NotNil(t, p.Stops[0].Rating)
	assert.InDelta(t, 4.5, *p.Stops[0].Rating, 0.001)
	assert.Equal(t, "5 min", p.Stops[0].ETA)
	assert.Equal(t, "https://maps.example/s1", p.Stops[0].MapsURL)
	assert.Equal(t, "2", p.Stops[1].ID, "numeric ids are stringified")
	assert.Nil(t, p.Stops[1].Rating)
	assert.Empty(t, p.Stops[1].ETA)
	assert.Equal(t, "~25m", p.TotalTime)
	assert.Equal(t, "https://maps.example/preview", p.MapPreviewURL)
}

func TestDecodePlan_OptionalFieldsAbsent(t *testing.T) {
	p, err := DecodePlan([]byte(`{"plan_id":"p","stops":[{"id":"a","name":"A"}]}`))
	require.NoError(t, err)
	assert.Empty(t, p.TotalTime)
	assert.Empty(t, p.MapPreviewURL)
	assert.Nil(t, p.TotalDistanceKm)
	assert.Empty(t, p.Stops[0].Category)
}

func TestDecodePlan_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"not json", `{"plan_id":`, "planning service returned an unreadable plan"},
		{"missing plan id", `{"stops":[]}`, "planning service returned an incomplete plan (missing plan_id)"},
		{"missing stops", `{"plan_id":"p"}`, "planning service returned an incomplete plan (missing stops)"},
		{"stop without name", `{"plan_id":"p","stops":[{"id":"a"}]}`, "planning service returned an incomplete plan (missing stops[0].name)"},
		{"unsuccessful", `{"stops":[],"success":false,"error":"No route data generated"}`, "No route data generated"},
		{"unsuccessful fallback", `{"stops":[],"success":false}`, "planning service could not build a route"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePlan([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, IsKind(err, KindValidation))
			assert.Equal(t, tt.message, UserMessage(err))
		})
	}
}

func TestFromPlan_DecodesBack(t *testing.T) {
	p, err := DecodePlan([]byte(twoStopPlan))
	require.NoError(t, err)

	data, err := json.Marshal(FromPlan(p))
	require.NoError(t, err)

	again, err := DecodePlan(data)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestDecodePlan_DistanceAlias(t *testing.T) {
	p, err := DecodePlan([]byte(`{"plan_id":"p","stops":[],"total_distance_km":4.2}`))
	require.NoError(t, err)
	require.NotNil(t, p.TotalDistanceKm)
	assert.InDelta(t, 4.2, *p.TotalDistanceKm, 0.0001)
}

func TestDecodeDetail(t *testing.T) {
	assert.Equal(t, "backend overloaded", DecodeDetail([]byte(`{"detail":"backend overloaded"}`)))
	assert.Empty(t, DecodeDetail([]byte(`{"detail":[{"loc":["body"]}]}`)))
	assert.Empty(t, DecodeDetail([]byte(`<html>502</html>`)))
}

func TestLooksLikePlan(t *testing.T) {
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"stops":[]}`), &obj))
	assert.True(t, LooksLikePlan(obj))

	var progress map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"progress"}`), &progress))
	assert.False(t, LooksLikePlan(progress))
}

func TestPlanRequest_Body(t *testing.T) {
	data, err := json.Marshal(PlanRequest{FreeText: "need milk", Lat: 1.5, Lng: -2}.Body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_text":"need milk","lat":1.5,"lng":-2}`, string(data))
}
