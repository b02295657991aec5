package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinetick/cinetick/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	q := querierFromContext(ctx, p.db)

	query := `
		INSERT INTO payments (reservation_id, user_id, checkout_session_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return q.QueryRow(
		ctx,
		query,
		payment.ReservationID,
		payment.UserID,
		payment.CheckoutSessionId,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)
}

func (p *PostgresPaymentRepository) GetByCheckoutSessionId(
	ctx context.Context,
	checkoutSessionID string) (*domain.Payment, error) {

	q := querierFromContext(ctx, p.db)

	query := `
		SELECT id, reservation_id, user_id, checkout_session_id, amount, currency, status, error_message, payment_date, created_at, updated_at
		FROM payments
		WHERE checkout_session_id = $1
	`

	var payment domain.Payment

	err := q.QueryRow(ctx, query, checkoutSessionID).Scan(
		&payment.ID,
		&payment.ReservationID,
		&payment.UserID,
		&payment.CheckoutSessionId,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.ErrorMsg,
		&payment.PaymentDate,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) UpdateStatus(
	ctx context.Context,
	checkoutSessionID string,
	status domain.PaymentStatus,
	errMsg string) error {

	q := querierFromContext(ctx, p.db)

	query := `
		UPDATE payments
		SET status = $1,
			error_message = NULLIF($2, ''),
			payment_date = CASE WHEN $1 = 'completed' THEN NOW() ELSE payment_date END,
			updated_at = NOW()
		WHERE checkout_session_id = $3
	`

	_, err := q.Exec(ctx, query, status, errMsg, checkoutSessionID)

	return err
}
