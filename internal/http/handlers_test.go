package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/ride-pooling/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.ServerConfig{
		SeatsTotal:      4,
		LuggageCapacity: 4,
		DemandFactor:    1.0,
		NearbyRadiusKm:  10,
		NearbyLimit:     20,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func submit(t *testing.T, s *Server, payload map[string]any) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/requests", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit returned %d: %s", w.Code, w.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out["request_id"]
}

func validPayload() map[string]any {
	return map[string]any{
		"user_id":     "u1",
		"origin":      map[string]float64{"lat": 40.72, "lon": -73.80},
		"destination": map[string]float64{"lat": 40.64, "lon": -73.78},
		"seats":       1,
	}
}

func TestSubmitRequestSuccess(t *testing.T) {
	s := testServer(t)
	id := submit(t, s, validPayload())
	if id == "" {
		t.Fatal("expected a request id")
	}
}

func TestSubmitRequestValidation(t *testing.T) {
	s := testServer(t)
	cases := []struct {
		name  string
		patch func(map[string]any)
	}{
		{"missing user", func(p map[string]any) { delete(p, "user_id") }},
		{"seats beyond capacity", func(p map[string]any) { p["seats"] = 5 }},
		{"negative seats", func(p map[string]any) { p["seats"] = -1 }},
		{"negative luggage", func(p map[string]any) { p["luggage"] = -1 }},
		{"luggage beyond capacity", func(p map[string]any) { p["luggage"] = 9 }},
		{"negative tolerance", func(p map[string]any) { p["detour_tolerance_km"] = -1.0 }},
		{"latitude out of range", func(p map[string]any) { p["origin"] = map[string]float64{"lat": 91, "lon": 0} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.patch(p)
			w := doJSON(t, s, http.MethodPost, "/api/v1/requests", p)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPendingListsSubmitted(t *testing.T) {
	s := testServer(t)
	id := submit(t, s, validPayload())

	w := doJSON(t, s, http.MethodGet, "/api/v1/requests/pending", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var pending []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0]["id"] != id {
		t.Fatalf("expected submitted request in pending list, got %v", pending)
	}
}

func TestCancelFlow(t *testing.T) {
	s := testServer(t)
	id := submit(t, s, validPayload())

	if w := doJSON(t, s, http.MethodPost, "/api/v1/requests/nope/cancel", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/requests/"+id+"/cancel", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/requests/"+id+"/cancel", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for double cancel, got %d", w.Code)
	}

	// the cancelled request leaves the pending list and never gets matched
	w := doJSON(t, s, http.MethodPost, "/api/v1/match/trigger", nil)
	var out struct {
		CreatedRides int `json:"created_rides"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.CreatedRides != 0 {
		t.Fatalf("cancelled request was matched into %d rides", out.CreatedRides)
	}
}

func TestTriggerMatchAndRideLifecycle(t *testing.T) {
	s := testServer(t)
	submit(t, s, validPayload())

	w := doJSON(t, s, http.MethodPost, "/api/v1/match/trigger", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		CreatedRides int      `json:"created_rides"`
		RideIDs      []string `json:"ride_ids"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.CreatedRides != 1 || len(out.RideIDs) != 1 {
		t.Fatalf("expected one ride, got %+v", out)
	}
	rideID := out.RideIDs[0]

	w = doJSON(t, s, http.MethodGet, "/api/v1/rides/"+rideID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var ride map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &ride); err != nil {
		t.Fatal(err)
	}
	if ride["status"] != "proposed" {
		t.Fatalf("new ride should be proposed, got %v", ride["status"])
	}

	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+rideID+"/accept", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 accept, got %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/rides/"+rideID+"/accept", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second accept, got %d", w.Code)
	}
}

func TestGetRideNotFound(t *testing.T) {
	s := testServer(t)
	if w := doJSON(t, s, http.MethodGet, "/api/v1/rides/unknown", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestNearbyUnconfigured(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/v1/requests/nearby?lat=40.7&lon=-73.8", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without redis, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	if w := doJSON(t, s, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
