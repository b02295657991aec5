// Package reservation implements the hold → pay → confirm/expire state
// machine on top of the seat ledger's atomic primitives.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinetick/cinetick/internal/clock"
	"github.com/cinetick/cinetick/internal/domain"
)

const (
	DefaultHoldTTL = 10 * time.Minute

	sweepBatchSize = 100
)

// TxRunner runs fn inside a single database transaction. Repository calls
// made with the context passed to fn share that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Engine struct {
	tx           TxRunner
	shows        domain.ShowRepository
	reservations domain.ReservationRepository
	bookings     domain.BookingRepository
	ledger       domain.SeatLedger
	clock        clock.Clock
	holdTTL      time.Duration
}

type EngineOption func(*Engine)

// WithHoldTTL overrides how long an unpaid hold stays valid.
func WithHoldTTL(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.holdTTL = d
		}
	}
}

func NewEngine(
	tx TxRunner,
	shows domain.ShowRepository,
	reservations domain.ReservationRepository,
	bookings domain.BookingRepository,
	ledger domain.SeatLedger,
	clk clock.Clock,
	opts ...EngineOption) *Engine {

	e := &Engine{
		tx:           tx,
		shows:        shows,
		reservations: reservations,
		bookings:     bookings,
		ledger:       ledger,
		clock:        clk,
		holdTTL:      DefaultHoldTTL,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RequestHold claims the given seats for the user. The pending reservation
// and the seat transitions commit atomically: on a seat conflict the
// transaction rolls back and no reservation is created. The returned
// *domain.SeatConflictError lists the seats that were unavailable.
func (e *Engine) RequestHold(
	ctx context.Context,
	showInstanceID uuid.UUID,
	userID string,
	seatLabels []string) (*domain.Reservation, error) {

	if len(seatLabels) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", domain.ErrInvalidSeatSelection)
	}

	seen := make(map[string]bool, len(seatLabels))
	for _, label := range seatLabels {
		if seen[label] {
			return nil, fmt.Errorf("%w: duplicate seat %q", domain.ErrInvalidSeatSelection, label)
		}
		seen[label] = true
	}

	show, err := e.shows.GetById(ctx, showInstanceID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()

	if show.Canceled() {
		return nil, domain.ErrShowCanceled
	}
	if now.After(show.StartTime) {
		return nil, domain.ErrShowAlreadyStarted
	}
	if !show.HasSeats(seatLabels) {
		return nil, fmt.Errorf("%w: seats outside the show's layout", domain.ErrInvalidSeatSelection)
	}

	reservation := &domain.Reservation{
		ID:             uuid.New(),
		ShowInstanceID: showInstanceID,
		UserID:         userID,
		SeatLabels:     seatLabels,
		Status:         domain.ReservationPending,
		Amount:         show.Price.Mul(decimal.NewFromInt(int64(len(seatLabels)))),
		ExpiresAt:      now.Add(e.holdTTL),
	}

	err = e.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.reservations.Create(ctx, reservation); err != nil {
			return err
		}

		return e.ledger.TryHold(ctx, showInstanceID, seatLabels, reservation.ID)
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// ConfirmPayment finalizes a reservation after the payment gateway reports
// success. A success arriving after the hold lapsed returns ErrHoldExpired
// whether the expiry happens here or the sweeper got there first; either way
// the seats end up free and the caller owes the customer a refund. Duplicate
// success callbacks after confirmation return the existing booking and no
// error; a success after cancellation returns ErrReservationFinalized.
func (e *Engine) ConfirmPayment(
	ctx context.Context,
	reservationID uuid.UUID,
	paymentRef string) (*domain.Booking, error) {

	var (
		booking *domain.Booking
		expired bool
	)

	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		reservation, err := e.reservations.GetByIdForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}

		switch reservation.Status {
		case domain.ReservationConfirmed:
			booking, err = e.bookings.GetByReservationId(ctx, reservationID)
			return err
		case domain.ReservationExpired:
			// The sweeper beat the callback to the expiry. The seats are
			// already free; the outcome for the caller is the same as a
			// lazy expiry.
			return domain.ErrHoldExpired
		case domain.ReservationCancelled:
			return domain.ErrReservationFinalized
		}

		if reservation.ExpiredAt(e.clock.Now()) {
			// Commit the expiry so the seats come free even though the
			// overall operation reports failure.
			expired = true

			if err := e.reservations.TransitionStatus(ctx, reservationID, domain.ReservationExpired); err != nil {
				return err
			}

			return e.ledger.Release(ctx, reservationID)
		}

		if err := e.reservations.TransitionStatus(ctx, reservationID, domain.ReservationConfirmed); err != nil {
			return err
		}

		if err := e.ledger.Confirm(ctx, reservationID); err != nil {
			return err
		}

		booking = &domain.Booking{
			ID:             uuid.New(),
			ReservationID:  reservation.ID,
			UserID:         reservation.UserID,
			ShowInstanceID: reservation.ShowInstanceID,
			SeatLabels:     reservation.SeatLabels,
			Amount:         reservation.Amount,
			IsPaid:         true,
		}
		if paymentRef != "" {
			booking.PaymentRef = &paymentRef
		}

		return e.bookings.Create(ctx, booking)
	})

	if err != nil {
		return nil, err
	}

	if expired {
		return nil, domain.ErrHoldExpired
	}

	return booking, nil
}

// Cancel aborts a pending reservation and frees its seats. Cancelling a
// reservation that already expired or was already cancelled is a no-op;
// cancelling a confirmed one is rejected.
func (e *Engine) Cancel(ctx context.Context, reservationID uuid.UUID) error {
	return e.tx.WithTx(ctx, func(ctx context.Context) error {
		reservation, err := e.reservations.GetByIdForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}

		switch reservation.Status {
		case domain.ReservationCancelled, domain.ReservationExpired:
			return nil
		case domain.ReservationConfirmed:
			return domain.ErrReservationFinalized
		}

		if err := e.reservations.TransitionStatus(ctx, reservationID, domain.ReservationCancelled); err != nil {
			return err
		}

		return e.ledger.Release(ctx, reservationID)
	})
}

// SweepExpired expires every lapsed pending reservation and releases its
// seats. Each reservation is handled in its own transaction; a reservation
// that a concurrent confirm, cancel or sweep finalized first is skipped.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	ids, err := e.reservations.GetExpiredPendingIds(ctx, e.clock.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, id := range ids {
		err := e.tx.WithTx(ctx, func(ctx context.Context) error {
			if err := e.reservations.TransitionStatus(ctx, id, domain.ReservationExpired); err != nil {
				return err
			}

			return e.ledger.Release(ctx, id)
		})

		if err != nil {
			if errors.Is(err, domain.ErrEditConflict) {
				continue
			}

			return count, err
		}

		count++
	}

	return count, nil
}
