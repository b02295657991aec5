package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShowInstance is a single scheduled screening of a movie at a specific time
// and price. The seat layout is fixed at creation time; the only mutation
// allowed afterwards is soft cancellation.
type ShowInstance struct {
	ID         uuid.UUID
	MovieID    string
	StartTime  time.Time
	Price      decimal.Decimal
	SeatLayout []string
	CreatedAt  time.Time
	CanceledAt *time.Time
}

func (s *ShowInstance) Canceled() bool {
	return s.CanceledAt != nil
}

// HasSeats reports whether every given label belongs to the show's layout.
func (s *ShowInstance) HasSeats(labels []string) bool {
	layout := make(map[string]bool, len(s.SeatLayout))
	for _, l := range s.SeatLayout {
		layout[l] = true
	}

	for _, l := range labels {
		if !layout[l] {
			return false
		}
	}

	return true
}

type ShowRepository interface {
	// Create persists the show instance and one FREE seat row per layout
	// label in a single transaction.
	Create(ctx context.Context, show *ShowInstance) error
	GetById(ctx context.Context, id uuid.UUID) (*ShowInstance, error)
	// GetUpcoming lists shows starting after the given instant, soonest
	// first.
	GetUpcoming(ctx context.Context, after time.Time, pagination Pagination) ([]*ShowInstance, *Metadata, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}
