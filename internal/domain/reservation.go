package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationExpired   ReservationStatus = "expired"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a short-lived claim over a set of seats for one show
// instance. While pending, all its seats are held exclusively on its behalf;
// exactly one of the terminal states survives concurrent transitions.
type Reservation struct {
	ID             uuid.UUID
	ShowInstanceID uuid.UUID
	UserID         string
	SeatLabels     []string
	Status         ReservationStatus
	Amount         decimal.Decimal
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

func (r *Reservation) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *Reservation) error
	GetById(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// GetByIdForUpdate locks the reservation row for the duration of the
	// surrounding transaction.
	GetByIdForUpdate(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// TransitionStatus atomically moves the reservation from pending to the
	// given terminal status. Returns ErrEditConflict when the reservation is
	// no longer pending.
	TransitionStatus(ctx context.Context, id uuid.UUID, to ReservationStatus) error

	// GetExpiredPendingIds returns ids of pending reservations whose
	// expiresAt lies before now, up to limit. The list is advisory: callers
	// must still win the TransitionStatus race before acting on an id.
	GetExpiredPendingIds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}
