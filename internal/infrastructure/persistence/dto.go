package persistence

import (
	"database/sql"
	"time"

	"trip_sentinel/internal/domain/entity"
)

// dealSchema — представление таблицы tracked_deals в БД.
type dealSchema struct {
	ID               string    `db:"id"`
	Destination      string    `db:"destination"`
	Country          string    `db:"country"`
	Price            int64     `db:"price"`
	MarketPrice      int64     `db:"market_price"`
	FlightPrice      int64     `db:"flight_price"`
	HotelPrice       int64     `db:"hotel_price"`
	ExperiencePrice  int64     `db:"experience_price"`
	Confidence       int       `db:"confidence"`
	Duration         string    `db:"duration"`
	AutoBookEligible bool      `db:"auto_book_eligible"`
	ExpiresAt        time.Time `db:"expires_at"`
	Status           string    `db:"status"`
	WithinBudget     bool      `db:"within_budget"`
	MeetsThreshold   bool      `db:"meets_threshold"`
	ProfileVersion   int64     `db:"profile_version"`
	FirstSeenAt      time.Time `db:"first_seen_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func fromTrackedDeal(tracked entity.TrackedDeal) dealSchema {
	return dealSchema{
		ID:               tracked.Deal.ID,
		Destination:      tracked.Deal.Destination,
		Country:          tracked.Deal.Country,
		Price:            tracked.Deal.Price,
		MarketPrice:      tracked.Deal.MarketPrice,
		FlightPrice:      tracked.Deal.FlightPrice,
		HotelPrice:       tracked.Deal.HotelPrice,
		ExperiencePrice:  tracked.Deal.ExperiencePrice,
		Confidence:       tracked.Deal.Confidence,
		Duration:         tracked.Deal.Duration,
		AutoBookEligible: tracked.Deal.AutoBookEligible,
		ExpiresAt:        tracked.Deal.ExpiresAt,
		Status:           tracked.Status.String(),
		WithinBudget:     tracked.WithinBudget,
		MeetsThreshold:   tracked.MeetsThreshold,
		ProfileVersion:   tracked.ProfileVersion,
		FirstSeenAt:      tracked.FirstSeenAt,
		UpdatedAt:        tracked.UpdatedAt,
	}
}

func (s dealSchema) toDomain() entity.TrackedDeal {
	return entity.TrackedDeal{
		Deal: entity.Deal{
			ID:               s.ID,
			Destination:      s.Destination,
			Country:          s.Country,
			Price:            s.Price,
			MarketPrice:      s.MarketPrice,
			FlightPrice:      s.FlightPrice,
			HotelPrice:       s.HotelPrice,
			ExperiencePrice:  s.ExperiencePrice,
			Confidence:       s.Confidence,
			Duration:         s.Duration,
			AutoBookEligible: s.AutoBookEligible,
			ExpiresAt:        s.ExpiresAt,
		},
		Status:         entity.DealStatus(s.Status),
		WithinBudget:   s.WithinBudget,
		MeetsThreshold: s.MeetsThreshold,
		ProfileVersion: s.ProfileVersion,
		FirstSeenAt:    s.FirstSeenAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// attemptSchema — представление таблицы booking_attempts в БД.
type attemptSchema struct {
	ID          string       `db:"id"`
	DealID      string       `db:"deal_id"`
	Price       int64        `db:"price"`
	Outcome     string       `db:"outcome"`
	Retries     int          `db:"retries"`
	Detail      string       `db:"detail"`
	AttemptedAt time.Time    `db:"attempted_at"`
	FinishedAt  sql.NullTime `db:"finished_at"`
}

func fromBookingAttempt(attempt entity.BookingAttempt) attemptSchema {
	schema := attemptSchema{
		ID:          attempt.ID,
		DealID:      attempt.DealID,
		Price:       attempt.Price,
		Outcome:     attempt.Outcome.String(),
		Retries:     attempt.Retries,
		Detail:      attempt.Detail,
		AttemptedAt: attempt.AttemptedAt,
	}

	if !attempt.FinishedAt.IsZero() {
		schema.FinishedAt = sql.NullTime{Time: attempt.FinishedAt, Valid: true}
	}

	return schema
}

func (s attemptSchema) toDomain() entity.BookingAttempt {
	attempt := entity.BookingAttempt{
		ID:          s.ID,
		DealID:      s.DealID,
		Price:       s.Price,
		Outcome:     entity.AttemptOutcome(s.Outcome),
		Retries:     s.Retries,
		Detail:      s.Detail,
		AttemptedAt: s.AttemptedAt,
	}

	if s.FinishedAt.Valid {
		attempt.FinishedAt = s.FinishedAt.Time
	}

	return attempt
}
