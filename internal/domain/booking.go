package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking is the durable record of a confirmed reservation. Once paid it is
// immutable; refunds and cancellations of paid bookings are an administrative
// flow outside this service.
type Booking struct {
	ID             uuid.UUID
	ReservationID  uuid.UUID
	UserID         string
	ShowInstanceID uuid.UUID
	SeatLabels     []string
	Amount         decimal.Decimal
	IsPaid         bool
	PaymentRef     *string
	CreatedAt      time.Time
}

type BookingSummary struct {
	BookingID  uuid.UUID
	MovieID    string
	StartTime  time.Time
	SeatLabels []string
	Amount     decimal.Decimal
	IsPaid     bool
	CreatedAt  time.Time
}

type BookingRepository interface {
	// Create inserts the booking. A repeat insert for the same reservation
	// returns ErrEditConflict, which callers treat as a duplicate-callback
	// no-op.
	Create(ctx context.Context, booking *Booking) error
	GetByReservationId(ctx context.Context, reservationID uuid.UUID) (*Booking, error)
	GetSummariesByUserId(ctx context.Context, userID string, pagination Pagination) ([]BookingSummary, *Metadata, error)
}
