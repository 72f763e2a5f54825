package matcher

import (
	"testing"

	"github.com/example/ride-pooling/internal/models"
)

func request(id string, seats, luggage int, tolerance float64) *models.Request {
	return &models.Request{
		ID:                id,
		UserID:            "u-" + id,
		Origin:            models.Coord{Lat: 40.72, Lon: -73.80},
		Destination:       models.Coord{Lat: 40.64, Lon: -73.78},
		Seats:             seats,
		Luggage:           luggage,
		DetourToleranceKm: tolerance,
		Status:            models.RequestPending,
	}
}

func TestCanJoinSeatLimit(t *testing.T) {
	g := NewGroup(request("seed", 3, 0, 5), 4, 4)
	if g.CanJoin(request("b", 2, 0, 5)) {
		t.Fatal("3+2 seats must not fit capacity 4")
	}
	if !g.CanJoin(request("c", 1, 0, 5)) {
		t.Fatal("3+1 seats should fit capacity 4")
	}
}

func TestCanJoinLuggageLimit(t *testing.T) {
	g := NewGroup(request("seed", 1, 4, 5), 4, 4)
	if g.CanJoin(request("b", 1, 1, 5)) {
		t.Fatal("4+1 luggage must not fit capacity 4")
	}
	if !g.CanJoin(request("c", 1, 0, 5)) {
		t.Fatal("zero luggage should fit a full trunk")
	}
}

func TestCanJoinChecksMemberTolerances(t *testing.T) {
	// seed tolerates no detour at all; candidate with a different route would
	// force one, however tolerant the candidate itself is
	seed := request("seed", 1, 0, 0)
	g := NewGroup(seed, 4, 4)
	far := request("far", 1, 0, 1000)
	far.Origin = models.Coord{Lat: 41.0, Lon: -74.0}
	if g.CanJoin(far) {
		t.Fatal("seed's zero tolerance must reject the join")
	}
}

func TestCanJoinIgnoresCandidateTolerance(t *testing.T) {
	// identical route: zero detour, so even a zero-tolerance candidate joins
	seed := request("seed", 1, 0, 5)
	g := NewGroup(seed, 4, 4)
	strict := request("strict", 1, 0, 0)
	if !g.CanJoin(strict) {
		t.Fatal("zero-detour join must succeed regardless of candidate tolerance")
	}
}

func TestCanJoinHasNoSideEffects(t *testing.T) {
	g := NewGroup(request("seed", 2, 1, 5), 4, 4)
	_ = g.CanJoin(request("b", 3, 0, 5)) // rejected
	_ = g.CanJoin(request("c", 1, 0, 5)) // accepted but not added
	if g.Occupancy != 2 || g.LuggageUsed != 1 || len(g.Members) != 1 {
		t.Fatalf("CanJoin mutated the group: %+v", g)
	}
}

func TestAddUpdatesTotals(t *testing.T) {
	g := NewGroup(request("seed", 1, 1, 5), 4, 4)
	g.Add(request("b", 2, 1, 5))
	if g.Occupancy != 3 || g.LuggageUsed != 2 {
		t.Fatalf("unexpected totals: occupancy=%d luggage=%d", g.Occupancy, g.LuggageUsed)
	}
	if len(g.Members) != 2 || g.Members[1].ID != "b" {
		t.Fatalf("member order lost: %+v", g.Members)
	}
}

func TestDetourZeroForIdenticalRoute(t *testing.T) {
	seed := request("seed", 1, 0, 5)
	g := NewGroup(seed, 4, 4)
	if d := g.DetourKm(request("b", 1, 0, 5)); d != 0 {
		t.Fatalf("identical route should cost no detour, got %f", d)
	}
}
