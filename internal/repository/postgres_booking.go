package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetick/cinetick/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{db: db}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	q := querierFromContext(ctx, p.db)

	query := `
		INSERT INTO bookings (id, reservation_id, user_id, show_instance_id, seat_labels, amount, is_paid, payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := q.QueryRow(
		ctx,
		query,
		booking.ID,
		booking.ReservationID,
		booking.UserID,
		booking.ShowInstanceID,
		booking.SeatLabels,
		booking.Amount,
		booking.IsPaid,
		booking.PaymentRef,
	).Scan(&booking.CreatedAt)

	if err != nil {
		// One booking per reservation, enforced by a unique index. A repeat
		// insert means a duplicate payment callback.
		if isUniqueViolation(err) {
			return domain.ErrEditConflict
		}

		return err
	}

	return nil
}

func (p *PostgresBookingRepository) GetByReservationId(
	ctx context.Context,
	reservationID uuid.UUID) (*domain.Booking, error) {

	q := querierFromContext(ctx, p.db)

	query := `
		SELECT id, reservation_id, user_id, show_instance_id, seat_labels, amount, is_paid, payment_ref, created_at
		FROM bookings
		WHERE reservation_id = $1
	`

	var booking domain.Booking

	err := q.QueryRow(ctx, query, reservationID).Scan(
		&booking.ID,
		&booking.ReservationID,
		&booking.UserID,
		&booking.ShowInstanceID,
		&booking.SeatLabels,
		&booking.Amount,
		&booking.IsPaid,
		&booking.PaymentRef,
		&booking.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &booking, nil
}

func (p *PostgresBookingRepository) GetSummariesByUserId(
	ctx context.Context,
	userID string,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	q := querierFromContext(ctx, p.db)

	query := `
		SELECT
			COUNT(*) OVER(),
			b.id,
			s.movie_id,
			s.start_time,
			b.seat_labels,
			b.amount,
			b.is_paid,
			b.created_at
		FROM bookings b
		JOIN show_instances s ON b.show_instance_id = s.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary

		err := rows.Scan(
			&totalRecords,
			&summary.BookingID,
			&summary.MovieID,
			&summary.StartTime,
			&summary.SeatLabels,
			&summary.Amount,
			&summary.IsPaid,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}
