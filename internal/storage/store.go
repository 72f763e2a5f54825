package storage

import (
	"context"
	"errors"

	"github.com/example/ride-pooling/internal/models"
)

var (
	// ErrNotFound is returned when a request or ride id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when a status transition is not allowed,
	// e.g. cancelling an already matched request or accepting a ride twice.
	ErrInvalidState = errors.New("invalid state")
	// ErrEmptyGroup is returned by CommitRide when every member was cancelled
	// between the pending snapshot and the commit.
	ErrEmptyGroup = errors.New("all members cancelled before commit")
)

// Store is the persistence collaborator for requests and rides. The matcher
// only ever sees this interface; Postgres backs it in production and
// MemoryStore backs local runs and tests.
type Store interface {
	CreateRequest(ctx context.Context, r *models.Request) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	// ListPendingRequests returns pending requests ordered by submission
	// time ascending.
	ListPendingRequests(ctx context.Context) ([]*models.Request, error)
	// CancelRequest flips pending->cancelled. ErrNotFound for unknown ids,
	// ErrInvalidState if the request already settled.
	CancelRequest(ctx context.Context, id string) error

	// CommitRide persists a proposed ride and flips each member to matched,
	// atomically for the whole group. Members no longer pending are removed
	// from ride.MemberIDs; the ride's occupancy, luggage and price are left
	// as computed from the snapshot. ErrEmptyGroup when no member survives.
	CommitRide(ctx context.Context, ride *models.Ride) error
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	// AcceptRide flips proposed->accepted atomically. ErrNotFound for
	// unknown ids, ErrInvalidState if already accepted.
	AcceptRide(ctx context.Context, id string) error
}
