package domain

import (
	"context"

	"github.com/google/uuid"
)

type SeatState string

const (
	SeatFree   SeatState = "free"
	SeatHeld   SeatState = "held"
	SeatBooked SeatState = "booked"
)

// SeatLedger is the single source of truth for seat availability. Every
// mutation is conditional on the seat's current state, so concurrent holds
// racing for the same seats resolve to exactly one winner.
//
// All methods participate in an ambient transaction when the context carries
// one (see repository.WithTx).
type SeatLedger interface {
	// TryHold transitions every listed seat from free to held by the given
	// reservation. It is all-or-nothing: if any seat is not free, no seat
	// changes state and a *SeatConflictError lists the unavailable ones.
	TryHold(ctx context.Context, showInstanceID uuid.UUID, seatLabels []string, reservationID uuid.UUID) error

	// Confirm transitions all seats held by the reservation to booked.
	// Returns ErrStaleHold when the reservation no longer holds any seat.
	Confirm(ctx context.Context, reservationID uuid.UUID) error

	// Release returns all seats held by the reservation to free. Idempotent:
	// seats already free or booked through another path are left untouched.
	Release(ctx context.Context, reservationID uuid.UUID) error

	// Query returns a snapshot of seat label to state for the show instance.
	Query(ctx context.Context, showInstanceID uuid.UUID) (map[string]SeatState, error)
}
