package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trip_sentinel/internal/domain"
	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/pkg/errcodes"
	"trip_sentinel/pkg/lox"
)

// AttemptRepository журнал попыток бронирования: каждая попытка проходит через
// Save минимум дважды (pending и терминальный исход), запись идемпотентна.
type AttemptRepository struct {
	db *sqlx.DB
}

func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Save(ctx context.Context, attempt entity.BookingAttempt) error {
	schema := fromBookingAttempt(attempt)

	query := `
		INSERT INTO booking_attempts (
			id, deal_id, price, outcome, retries, detail, attempted_at, finished_at
		) VALUES (
			:id, :deal_id, :price, :outcome, :retries, :detail, :attempted_at, :finished_at
		)
		ON CONFLICT (id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			retries = EXCLUDED.retries,
			detail = EXCLUDED.detail,
			finished_at = EXCLUDED.finished_at`

	if _, err := r.db.NamedExecContext(ctx, query, schema); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to save booking attempt")
	}

	return nil
}

func (r *AttemptRepository) GetByID(ctx context.Context, id string) (entity.BookingAttempt, error) {
	query := `SELECT * FROM booking_attempts WHERE id = $1`

	var schema attemptSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.BookingAttempt{}, domain.NewError(errcodes.AttemptNotFound, "attempt not found")
		}
		return entity.BookingAttempt{}, domain.WrapError(err, errcodes.InternalServerError, "failed to get attempt")
	}

	return schema.toDomain(), nil
}

// ListByDeal — все попытки по сделке в порядке запуска.
func (r *AttemptRepository) ListByDeal(ctx context.Context, dealID string) ([]entity.BookingAttempt, error) {
	query := `SELECT * FROM booking_attempts WHERE deal_id = $1 ORDER BY attempted_at ASC`

	var schemas []attemptSchema
	if err := r.db.SelectContext(ctx, &schemas, query, dealID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list attempts")
	}

	return lox.Map(schemas, attemptSchema.toDomain), nil
}
