package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-pooling/internal/gate"
	"github.com/example/ride-pooling/internal/geo"
	"github.com/example/ride-pooling/internal/models"
	"github.com/example/ride-pooling/internal/observability"
	"github.com/example/ride-pooling/internal/pricing"
	"github.com/example/ride-pooling/internal/storage"
)

// Notifier pushes a proposal notice to a user once their request lands in a
// committed ride. Best-effort; delivery failures never fail the run.
type Notifier interface {
	NotifyProposal(userID string, n models.ProposalNotice) error
}

// EventPublisher emits request lifecycle events (cancelled, matched) for
// downstream consumers such as the geo-mirror pipeline. Optional.
type EventPublisher interface {
	PublishRequestEvent(ctx context.Context, ev models.RequestEvent) error
}

// Service runs the greedy grouping engine and the cancellation path. Both
// serialize through the gate's matching scope so a cancellation either happens
// entirely before a run reads state or entirely after it commits.
type Service struct {
	Store           storage.Store
	Gate            *gate.Registry
	Notifier        Notifier       // optional
	Events          EventPublisher // optional
	SeatsTotal      int
	LuggageCapacity int
	DemandFactor    float64
	Logger          *slog.Logger
}

// TriggerMatch runs one matching pass under the exclusion scope and returns
// the rides it committed. Repeated calls over an unchanged pending set are
// deterministic; a second call right after a full pass finds nothing to do.
func (s *Service) TriggerMatch(ctx context.Context) ([]*models.Ride, error) {
	var rides []*models.Ride
	err := s.Gate.Do(gate.MatchingScope, func() error {
		var err error
		rides, err = s.runMatch(ctx)
		return err
	})
	return rides, err
}

// CancelRequest flips a pending request to cancelled under the exclusion
// scope, so it can never interleave with a matching pass.
func (s *Service) CancelRequest(ctx context.Context, id string) error {
	return s.Gate.Do(gate.MatchingScope, func() error {
		if err := s.Store.CancelRequest(ctx, id); err != nil {
			return err
		}
		observability.RequestsCancelled.Inc()
		if s.Events != nil {
			ev := models.RequestEvent{Type: "cancelled", Request: models.Request{ID: id, Status: models.RequestCancelled}}
			_ = s.Events.PublishRequestEvent(ctx, ev)
		}
		return nil
	})
}

func (s *Service) runMatch(ctx context.Context) ([]*models.Ride, error) {
	start := time.Now()
	observability.MatchRunsTotal.Inc()
	defer func() {
		observability.MatchRunSeconds.Observe(time.Since(start).Seconds())
	}()

	pending, err := s.Store.ListPendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	// claimed markers over the FIFO snapshot; no removal mid-iteration
	claimed := make([]bool, len(pending))
	var rides []*models.Ride

	for i, seed := range pending {
		if claimed[i] {
			continue
		}
		g := NewGroup(seed, s.SeatsTotal, s.LuggageCapacity)
		claimed[i] = true

		// scan the remainder once; a rejected candidate stays unclaimed
		// for a later group or its own seed turn
		for j := i + 1; j < len(pending); j++ {
			if claimed[j] {
				continue
			}
			if g.CanJoin(pending[j]) {
				g.Add(pending[j])
				claimed[j] = true
			}
		}

		ride := s.finalize(g)
		if err := s.Store.CommitRide(ctx, ride); err != nil {
			if errors.Is(err, storage.ErrEmptyGroup) {
				// every member cancelled between snapshot and commit
				continue
			}
			// storage failure aborts the run; rides committed so far stay
			return rides, fmt.Errorf("commit ride: %w", err)
		}
		observability.RidesCreated.Inc()
		observability.RequestsGrouped.Add(float64(len(ride.MemberIDs)))
		if dropped := len(g.Members) - len(ride.MemberIDs); dropped > 0 {
			observability.MembersDropped.Add(float64(dropped))
			if s.Logger != nil {
				s.Logger.Warn("members cancelled before commit", "ride_id", ride.ID, "dropped", dropped)
			}
		}
		s.announce(ctx, g, ride)
		rides = append(rides, ride)
	}

	if s.Logger != nil {
		s.Logger.Info("match run complete",
			"pending", len(pending),
			"rides_created", len(rides),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return rides, nil
}

// finalize prices the group over its representative route and final occupancy
// and shapes it into a proposed ride. If commit later drops a cancelled
// member, occupancy, luggage and price are left as computed here.
func (s *Service) finalize(g *Group) *models.Ride {
	routeKm := geo.HaversineKm(g.Origin, g.Destination)
	memberIDs := make([]string, len(g.Members))
	for i, m := range g.Members {
		memberIDs[i] = m.ID
	}
	demand := s.DemandFactor
	if demand <= 0 {
		demand = 1.0
	}
	return &models.Ride{
		ID:                uuid.NewString(),
		MemberIDs:         memberIDs,
		SeatsTotal:        g.SeatsTotal,
		LuggageCapacity:   g.LuggageCapacity,
		Occupancy:         g.Occupancy,
		LuggageUsed:       g.LuggageUsed,
		Origin:            g.Origin,
		Destination:       g.Destination,
		PricePerPassenger: pricing.PerPassenger(routeKm, g.Occupancy, demand),
		CreatedAt:         time.Now().UTC(),
		Status:            models.RideProposed,
	}
}

func (s *Service) announce(ctx context.Context, g *Group, ride *models.Ride) {
	committed := make(map[string]bool, len(ride.MemberIDs))
	for _, id := range ride.MemberIDs {
		committed[id] = true
	}
	for _, m := range g.Members {
		if !committed[m.ID] {
			continue
		}
		if s.Notifier != nil {
			_ = s.Notifier.NotifyProposal(m.UserID, models.ProposalNotice{
				RideID:            ride.ID,
				RequestID:         m.ID,
				Occupancy:         ride.Occupancy,
				PricePerPassenger: ride.PricePerPassenger,
			})
		}
		if s.Events != nil {
			m.Status = models.RequestMatched
			_ = s.Events.PublishRequestEvent(ctx, models.RequestEvent{Type: "matched", Request: *m})
		}
	}
}
