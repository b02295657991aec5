package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetick/cinetick/internal/domain"
)

type PostgresReservationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresReservationRepository(db *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{db: db}
}

func (p *PostgresReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	q := querierFromContext(ctx, p.db)

	query := `
		INSERT INTO reservations (id, show_instance_id, user_id, seat_labels, status, amount, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return q.QueryRow(
		ctx,
		query,
		reservation.ID,
		reservation.ShowInstanceID,
		reservation.UserID,
		reservation.SeatLabels,
		reservation.Status,
		reservation.Amount,
		reservation.ExpiresAt,
	).Scan(&reservation.CreatedAt)
}

func (p *PostgresReservationRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return p.getById(ctx, id, false)
}

func (p *PostgresReservationRepository) GetByIdForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return p.getById(ctx, id, true)
}

func (p *PostgresReservationRepository) getById(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Reservation, error) {
	q := querierFromContext(ctx, p.db)

	query := `
		SELECT id, show_instance_id, user_id, seat_labels, status, amount, created_at, expires_at
		FROM reservations
		WHERE id = $1
	`

	if forUpdate {
		query += ` FOR UPDATE`
	}

	var reservation domain.Reservation

	err := q.QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.ShowInstanceID,
		&reservation.UserID,
		&reservation.SeatLabels,
		&reservation.Status,
		&reservation.Amount,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &reservation, nil
}

// TransitionStatus is the terminal-exclusivity primitive: of all concurrent
// confirm/cancel/sweep attempts on one reservation, exactly one sees its
// conditional UPDATE apply.
func (p *PostgresReservationRepository) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	to domain.ReservationStatus) error {

	q := querierFromContext(ctx, p.db)

	query := `
		UPDATE reservations
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := q.Exec(ctx, query, id, to)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEditConflict
	}

	return nil
}

func (p *PostgresReservationRepository) GetExpiredPendingIds(
	ctx context.Context,
	now time.Time,
	limit int) ([]uuid.UUID, error) {

	q := querierFromContext(ctx, p.db)

	query := `
		SELECT id
		FROM reservations
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
