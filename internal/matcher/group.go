package matcher

import (
	"github.com/example/ride-pooling/internal/geo"
	"github.com/example/ride-pooling/internal/models"
)

// Group is a ride being assembled around a seed request. The representative
// route is the seed's origin/destination; members keep insertion order.
type Group struct {
	Origin          models.Coord
	Destination     models.Coord
	SeatsTotal      int
	LuggageCapacity int
	Occupancy       int
	LuggageUsed     int
	Members         []*models.Request
}

// NewGroup opens a group seeded by the given request. The seed's seat and
// luggage requirements become the initial occupancy; capacities come from
// system config and are validated against at submission time, not here.
func NewGroup(seed *models.Request, seatsTotal, luggageCapacity int) *Group {
	return &Group{
		Origin:          seed.Origin,
		Destination:     seed.Destination,
		SeatsTotal:      seatsTotal,
		LuggageCapacity: luggageCapacity,
		Occupancy:       seed.Seats,
		LuggageUsed:     seed.Luggage,
		Members:         []*models.Request{seed},
	}
}

// DetourKm estimates the extra distance riding via the candidate costs the
// group: the leg from the group's origin to the candidate's origin plus the
// leg from the candidate's destination back to the group's destination. The
// proxy is deliberately simple and fixed; it is the one every compatibility
// decision uses.
func (g *Group) DetourKm(candidate *models.Request) float64 {
	return geo.HaversineKm(g.Origin, candidate.Origin) +
		geo.HaversineKm(candidate.Destination, g.Destination)
}

// CanJoin reports whether the candidate may join: seats fit, luggage fits,
// and the estimated detour stays within every current member's tolerance.
// The candidate's own tolerance is not consulted here; it constrains joiners
// that come after it. No state is modified.
func (g *Group) CanJoin(candidate *models.Request) bool {
	if g.Occupancy+candidate.Seats > g.SeatsTotal {
		return false
	}
	if g.LuggageUsed+candidate.Luggage > g.LuggageCapacity {
		return false
	}
	extra := g.DetourKm(candidate)
	for _, m := range g.Members {
		if extra > m.DetourToleranceKm {
			return false
		}
	}
	return true
}

// Add admits the candidate. Callers check CanJoin first.
func (g *Group) Add(candidate *models.Request) {
	g.Occupancy += candidate.Seats
	g.LuggageUsed += candidate.Luggage
	g.Members = append(g.Members, candidate)
}
