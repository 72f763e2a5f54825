package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/example/ride-pooling/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) CreateRequest(ctx context.Context, r *models.Request) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO requests(id, user_id, origin_lat, origin_lon, dest_lat, dest_lon, seats, luggage, detour_tolerance_km, created_at, status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.UserID, r.Origin.Lat, r.Origin.Lon, r.Destination.Lat, r.Destination.Lon,
		r.Seats, r.Luggage, r.DetourToleranceKm, r.CreatedAt, r.Status)
	return err
}

func (p *PostgresStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, origin_lat, origin_lon, dest_lat, dest_lon, seats, luggage, detour_tolerance_km, created_at, status
		 FROM requests WHERE id=$1`, id)
	return scanRequest(row)
}

func (p *PostgresStore) ListPendingRequests(ctx context.Context) ([]*models.Request, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, user_id, origin_lat, origin_lon, dest_lat, dest_lon, seats, luggage, detour_tolerance_km, created_at, status
		 FROM requests WHERE status='pending' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CancelRequest(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE requests SET status='cancelled' WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	// distinguish missing from already settled
	var status string
	err = p.db.QueryRowContext(ctx, `SELECT status FROM requests WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidState
}

// CommitRide runs one transaction per ride: each member still pending is
// flipped to matched, members cancelled since the snapshot are dropped from
// the member list, and the ride row is inserted with whatever figures the
// matcher computed from the snapshot.
func (p *PostgresStore) CommitRide(ctx context.Context, ride *models.Ride) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	alive := make([]string, 0, len(ride.MemberIDs))
	for _, id := range ride.MemberIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE requests SET status='matched' WHERE id=$1 AND status='pending'`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			alive = append(alive, id)
		}
	}
	if len(alive) == 0 {
		return ErrEmptyGroup
	}
	ride.MemberIDs = alive
	_, err = tx.ExecContext(ctx,
		`INSERT INTO rides(id, member_ids, seats_total, luggage_capacity, occupancy, luggage_used, origin_lat, origin_lon, dest_lat, dest_lon, price_per_passenger, created_at, status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		ride.ID, pq.Array(ride.MemberIDs), ride.SeatsTotal, ride.LuggageCapacity,
		ride.Occupancy, ride.LuggageUsed,
		ride.Origin.Lat, ride.Origin.Lon, ride.Destination.Lat, ride.Destination.Lon,
		ride.PricePerPassenger, ride.CreatedAt, ride.Status)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	var r models.Ride
	var members pq.StringArray
	err := p.db.QueryRowContext(ctx,
		`SELECT id, member_ids, seats_total, luggage_capacity, occupancy, luggage_used, origin_lat, origin_lon, dest_lat, dest_lon, price_per_passenger, created_at, status
		 FROM rides WHERE id=$1`, id).Scan(
		&r.ID, &members, &r.SeatsTotal, &r.LuggageCapacity, &r.Occupancy, &r.LuggageUsed,
		&r.Origin.Lat, &r.Origin.Lon, &r.Destination.Lat, &r.Destination.Lon,
		&r.PricePerPassenger, &r.CreatedAt, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.MemberIDs = []string(members)
	return &r, nil
}

func (p *PostgresStore) AcceptRide(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET status='accepted' WHERE id=$1 AND status='proposed'`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var status string
	err = p.db.QueryRowContext(ctx, `SELECT status FROM rides WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidState
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var r models.Request
	err := row.Scan(&r.ID, &r.UserID, &r.Origin.Lat, &r.Origin.Lon,
		&r.Destination.Lat, &r.Destination.Lon, &r.Seats, &r.Luggage,
		&r.DetourToleranceKm, &r.CreatedAt, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	return &r, nil
}
