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

// DealRepository журнал отслеживаемых сделок. Движок живёт в памяти, журнал
// нужен для аудита и разбора инцидентов, поэтому запись write-behind.
type DealRepository struct {
	db *sqlx.DB
}

func NewDealRepository(db *sqlx.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to commit")
	}
	return nil
}

// Save — upsert по id: каждая переоценка перезаписывает последнее состояние.
func (r *DealRepository) Save(ctx context.Context, tracked entity.TrackedDeal) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		schema := fromTrackedDeal(tracked)

		query := `
			INSERT INTO tracked_deals (
				id, destination, country, price, market_price,
				flight_price, hotel_price, experience_price, confidence,
				duration, auto_book_eligible, expires_at, status,
				within_budget, meets_threshold, profile_version,
				first_seen_at, updated_at
			) VALUES (
				:id, :destination, :country, :price, :market_price,
				:flight_price, :hotel_price, :experience_price, :confidence,
				:duration, :auto_book_eligible, :expires_at, :status,
				:within_budget, :meets_threshold, :profile_version,
				:first_seen_at, :updated_at
			)
			ON CONFLICT (id) DO UPDATE SET
				destination = EXCLUDED.destination,
				country = EXCLUDED.country,
				price = EXCLUDED.price,
				market_price = EXCLUDED.market_price,
				flight_price = EXCLUDED.flight_price,
				hotel_price = EXCLUDED.hotel_price,
				experience_price = EXCLUDED.experience_price,
				confidence = EXCLUDED.confidence,
				duration = EXCLUDED.duration,
				auto_book_eligible = EXCLUDED.auto_book_eligible,
				expires_at = EXCLUDED.expires_at,
				status = EXCLUDED.status,
				within_budget = EXCLUDED.within_budget,
				meets_threshold = EXCLUDED.meets_threshold,
				profile_version = EXCLUDED.profile_version,
				updated_at = EXCLUDED.updated_at`

		_, err := tx.NamedExecContext(ctx, query, schema)
		if err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to save tracked deal")
		}
		return nil
	})
}

// GetByID — последнее зафиксированное состояние сделки.
func (r *DealRepository) GetByID(ctx context.Context, id string) (entity.TrackedDeal, error) {
	query := `SELECT * FROM tracked_deals WHERE id = $1`

	var schema dealSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.TrackedDeal{}, domain.NewError(errcodes.DealNotFound, "deal not found")
		}
		return entity.TrackedDeal{}, domain.WrapError(err, errcodes.InternalServerError, "failed to get deal")
	}

	return schema.toDomain(), nil
}

// List — срез журнала, свежие сверху.
func (r *DealRepository) List(ctx context.Context, limit, offset int) ([]entity.TrackedDeal, error) {
	query := `SELECT * FROM tracked_deals ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	var schemas []dealSchema
	if err := r.db.SelectContext(ctx, &schemas, query, limit, offset); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list deals")
	}

	return lox.Map(schemas, dealSchema.toDomain), nil
}
