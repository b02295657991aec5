package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetick/cinetick/internal/domain"
)

// PostgresSeatLedger owns the show_seats rows. All transitions are expressed
// as conditional UPDATEs, so the database's row locking is the only
// serialization point: two holds racing for an overlapping seat set resolve
// to exactly one winner, and holds over disjoint seat sets never block each
// other.
type PostgresSeatLedger struct {
	db *pgxpool.Pool
}

func NewPostgresSeatLedger(db *pgxpool.Pool) *PostgresSeatLedger {
	return &PostgresSeatLedger{db: db}
}

// TryHold must run inside a transaction: on conflict the returned error makes
// the caller roll back, which undoes the partial transition and restores the
// all-or-nothing guarantee.
func (p *PostgresSeatLedger) TryHold(
	ctx context.Context,
	showInstanceID uuid.UUID,
	seatLabels []string,
	reservationID uuid.UUID) error {

	q := querierFromContext(ctx, p.db)

	query := `
		UPDATE show_seats
		SET status = 'held', reservation_id = $3, updated_at = NOW()
		WHERE show_instance_id = $1 AND seat_label = ANY($2) AND status = 'free'
	`

	tag, err := q.Exec(ctx, query, showInstanceID, seatLabels, reservationID)
	if err != nil {
		return err
	}

	if int(tag.RowsAffected()) == len(seatLabels) {
		return nil
	}

	conflicting, err := p.unavailableSeats(ctx, showInstanceID, seatLabels, reservationID)
	if err != nil {
		return err
	}

	return &domain.SeatConflictError{Seats: conflicting}
}

func (p *PostgresSeatLedger) unavailableSeats(
	ctx context.Context,
	showInstanceID uuid.UUID,
	seatLabels []string,
	reservationID uuid.UUID) ([]string, error) {

	q := querierFromContext(ctx, p.db)

	query := `
		SELECT seat_label
		FROM show_seats
		WHERE show_instance_id = $1
			AND seat_label = ANY($2)
			AND status <> 'free'
			AND reservation_id IS DISTINCT FROM $3
		ORDER BY seat_label
	`

	rows, err := q.Query(ctx, query, showInstanceID, seatLabels, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conflicting := make([]string, 0)

	for rows.Next() {
		var label string

		if err := rows.Scan(&label); err != nil {
			return nil, err
		}

		conflicting = append(conflicting, label)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conflicting, nil
}

func (p *PostgresSeatLedger) Confirm(ctx context.Context, reservationID uuid.UUID) error {
	q := querierFromContext(ctx, p.db)

	query := `
		UPDATE show_seats
		SET status = 'booked', updated_at = NOW()
		WHERE reservation_id = $1 AND status = 'held'
	`

	tag, err := q.Exec(ctx, query, reservationID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrStaleHold
	}

	return nil
}

func (p *PostgresSeatLedger) Release(ctx context.Context, reservationID uuid.UUID) error {
	q := querierFromContext(ctx, p.db)

	query := `
		UPDATE show_seats
		SET status = 'free', reservation_id = NULL, updated_at = NOW()
		WHERE reservation_id = $1 AND status = 'held'
	`

	_, err := q.Exec(ctx, query, reservationID)

	return err
}

func (p *PostgresSeatLedger) Query(ctx context.Context, showInstanceID uuid.UUID) (map[string]domain.SeatState, error) {
	q := querierFromContext(ctx, p.db)

	query := `
		SELECT seat_label, status
		FROM show_seats
		WHERE show_instance_id = $1
	`

	rows, err := q.Query(ctx, query, showInstanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]domain.SeatState)

	for rows.Next() {
		var (
			label  string
			status string
		)

		if err := rows.Scan(&label, &status); err != nil {
			return nil, err
		}

		states[label] = domain.SeatState(status)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(states) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	return states, nil
}

var _ domain.SeatLedger = (*PostgresSeatLedger)(nil)
