package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ride-pooling/internal/models"
)

// MemoryStore keeps requests and rides in maps. Good enough for local runs
// and for tests; the matching exclusion scope already serializes mutation,
// the internal mutex only protects concurrent reads.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*models.Request
	rides    map[string]*models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*models.Request),
		rides:    make(map[string]*models.Ride),
	}
}

func (m *MemoryStore) CreateRequest(ctx context.Context, r *models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListPendingRequests(ctx context.Context) ([]*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, r := range m.requests {
		if r.Status == models.RequestPending {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) CancelRequest(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != models.RequestPending {
		return ErrInvalidState
	}
	r.Status = models.RequestCancelled
	return nil
}

func (m *MemoryStore) CommitRide(ctx context.Context, ride *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// re-check members: anyone cancelled since the snapshot is dropped
	alive := make([]string, 0, len(ride.MemberIDs))
	for _, id := range ride.MemberIDs {
		r, ok := m.requests[id]
		if ok && r.Status == models.RequestPending {
			alive = append(alive, id)
		}
	}
	if len(alive) == 0 {
		return ErrEmptyGroup
	}
	for _, id := range alive {
		m.requests[id].Status = models.RequestMatched
	}
	ride.MemberIDs = alive
	cp := *ride
	cp.MemberIDs = append([]string(nil), alive...)
	m.rides[ride.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.MemberIDs = append([]string(nil), r.MemberIDs...)
	return &cp, nil
}

func (m *MemoryStore) AcceptRide(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != models.RideProposed {
		return ErrInvalidState
	}
	r.Status = models.RideAccepted
	return nil
}
