package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestMatched   RequestStatus = "matched"
	RequestCancelled RequestStatus = "cancelled"
)

type RideStatus string

const (
	RideProposed RideStatus = "proposed"
	RideAccepted RideStatus = "accepted"
)

// Request is a single passenger's trip submission. Status only moves
// pending->matched or pending->cancelled; a settled request never changes again.
type Request struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	Origin            Coord         `json:"origin"`
	Destination       Coord         `json:"destination"`
	Seats             int           `json:"seats"`
	Luggage           int           `json:"luggage"`
	DetourToleranceKm float64       `json:"detour_tolerance_km"`
	CreatedAt         time.Time     `json:"created_at"`
	Status            RequestStatus `json:"status"`
}

// Ride is a committed group of compatible requests sharing one trip.
// MemberIDs keep insertion order (the order the matcher added them).
// Occupancy is the sum of member seat requirements, not the member count.
type Ride struct {
	ID                string     `json:"id"`
	MemberIDs         []string   `json:"member_ids"`
	SeatsTotal        int        `json:"seats_total"`
	LuggageCapacity   int        `json:"luggage_capacity"`
	Occupancy         int        `json:"occupancy"`
	LuggageUsed       int        `json:"luggage_used"`
	Origin            Coord      `json:"origin"`
	Destination       Coord      `json:"destination"`
	PricePerPassenger float64    `json:"price_per_passenger"`
	CreatedAt         time.Time  `json:"created_at"`
	Status            RideStatus `json:"status"`
}

// RequestEvent is the kafka payload emitted on request lifecycle changes.
type RequestEvent struct {
	Type    string  `json:"type"` // submitted, cancelled, matched
	Request Request `json:"request"`
}

// ProposalNotice is pushed to a user's websocket session when a ride
// containing one of their requests is committed.
type ProposalNotice struct {
	RideID            string  `json:"ride_id"`
	RequestID         string  `json:"request_id"`
	Occupancy         int     `json:"occupancy"`
	PricePerPassenger float64 `json:"price_per_passenger"`
}
