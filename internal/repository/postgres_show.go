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

type PostgresShowRepository struct {
	db *pgxpool.Pool
	tx *TxManager
}

func NewPostgresShowRepository(db *pgxpool.Pool) *PostgresShowRepository {
	return &PostgresShowRepository{
		db: db,
		tx: NewTxManager(db),
	}
}

// Create inserts the show instance together with one FREE seat row per layout
// label, atomically. A show is never visible without its seat rows.
func (p *PostgresShowRepository) Create(ctx context.Context, show *domain.ShowInstance) error {
	return p.tx.WithTx(ctx, func(ctx context.Context) error {
		q := querierFromContext(ctx, p.db)

		query := `
			INSERT INTO show_instances (id, movie_id, start_time, price, seat_layout)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`

		err := q.QueryRow(
			ctx,
			query,
			show.ID,
			show.MovieID,
			show.StartTime,
			show.Price,
			show.SeatLayout,
		).Scan(&show.CreatedAt)
		if err != nil {
			return err
		}

		tx := txFromContext(ctx)

		rows := make([][]any, 0, len(show.SeatLayout))
		for _, label := range show.SeatLayout {
			rows = append(rows, []any{show.ID, label, string(domain.SeatFree)})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"show_seats"},
			[]string{"show_instance_id", "seat_label", "status"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

func (p *PostgresShowRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.ShowInstance, error) {
	q := querierFromContext(ctx, p.db)

	query := `
		SELECT id, movie_id, start_time, price, seat_layout, created_at, canceled_at
		FROM show_instances
		WHERE id = $1
	`

	var show domain.ShowInstance

	err := q.QueryRow(ctx, query, id).Scan(
		&show.ID,
		&show.MovieID,
		&show.StartTime,
		&show.Price,
		&show.SeatLayout,
		&show.CreatedAt,
		&show.CanceledAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &show, nil
}

func (p *PostgresShowRepository) GetUpcoming(
	ctx context.Context,
	after time.Time,
	pagination domain.Pagination) ([]*domain.ShowInstance, *domain.Metadata, error) {

	q := querierFromContext(ctx, p.db)

	query := `
		SELECT
			COUNT(*) OVER(),
			id, movie_id, start_time, price, seat_layout, created_at, canceled_at
		FROM show_instances
		WHERE start_time > $1 AND canceled_at IS NULL
		ORDER BY start_time ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, after, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	shows := make([]*domain.ShowInstance, 0)
	totalRecords := 0

	for rows.Next() {
		var show domain.ShowInstance

		err := rows.Scan(
			&totalRecords,
			&show.ID,
			&show.MovieID,
			&show.StartTime,
			&show.Price,
			&show.SeatLayout,
			&show.CreatedAt,
			&show.CanceledAt,
		)
		if err != nil {
			return nil, nil, err
		}

		shows = append(shows, &show)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return shows, metadata, nil
}

func (p *PostgresShowRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	q := querierFromContext(ctx, p.db)

	query := `
		UPDATE show_instances
		SET canceled_at = NOW()
		WHERE id = $1 AND canceled_at IS NULL
	`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		// Either the show doesn't exist or it is already canceled.
		_, err := p.GetById(ctx, id)
		if err != nil {
			return err
		}

		return domain.ErrShowCanceled
	}

	return nil
}
