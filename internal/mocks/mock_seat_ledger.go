package mocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinetick/cinetick/internal/domain"
)

type MockSeatLedger struct {
	TryHoldFunc func(ctx context.Context, showInstanceID uuid.UUID, seatLabels []string, reservationID uuid.UUID) error
	ConfirmFunc func(ctx context.Context, reservationID uuid.UUID) error
	ReleaseFunc func(ctx context.Context, reservationID uuid.UUID) error
	QueryFunc   func(ctx context.Context, showInstanceID uuid.UUID) (map[string]domain.SeatState, error)
}

func (m *MockSeatLedger) TryHold(
	ctx context.Context,
	showInstanceID uuid.UUID,
	seatLabels []string,
	reservationID uuid.UUID) error {

	return m.TryHoldFunc(ctx, showInstanceID, seatLabels, reservationID)
}

func (m *MockSeatLedger) Confirm(ctx context.Context, reservationID uuid.UUID) error {
	return m.ConfirmFunc(ctx, reservationID)
}

func (m *MockSeatLedger) Release(ctx context.Context, reservationID uuid.UUID) error {
	return m.ReleaseFunc(ctx, reservationID)
}

func (m *MockSeatLedger) Query(
	ctx context.Context,
	showInstanceID uuid.UUID) (map[string]domain.SeatState, error) {

	return m.QueryFunc(ctx, showInstanceID)
}
