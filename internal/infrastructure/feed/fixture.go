package feed

import (
	"context"
	"time"

	"github.com/samber/lo"

	"trip_sentinel/internal/domain/entity"
)

// FixtureSource детерминированный фид для локальной разработки и демо: тот же
// контракт, что у HTTPSource, но без сети и без ключей агрегатора.
type FixtureSource struct {
	now func() time.Time
}

func NewFixtureSource() *FixtureSource {
	return &FixtureSource{now: time.Now}
}

func (s *FixtureSource) FetchDeals(_ context.Context) ([]entity.Deal, error) {
	now := s.now()

	fixtures := []entity.Deal{
		{
			ID:               "fixture-tokyo",
			Destination:      "Tokyo",
			Country:          "Japan",
			Price:            240000,
			MarketPrice:      320000,
			FlightPrice:      98000,
			HotelPrice:       102000,
			ExperiencePrice:  40000,
			Confidence:       92,
			Duration:         "7 days",
			AutoBookEligible: true,
			ExpiresAt:        now.Add(6 * time.Hour),
		},
		{
			ID:               "fixture-lisbon",
			Destination:      "Lisbon",
			Country:          "Portugal",
			Price:            145000,
			MarketPrice:      210000,
			FlightPrice:      62000,
			HotelPrice:       58000,
			ExperiencePrice:  25000,
			Confidence:       88,
			Duration:         "5 days",
			AutoBookEligible: true,
			ExpiresAt:        now.Add(12 * time.Hour),
		},
		{
			ID:               "fixture-bali",
			Destination:      "Bali",
			Country:          "Indonesia",
			Price:            189000,
			MarketPrice:      230000,
			FlightPrice:      84000,
			HotelPrice:       70000,
			ExperiencePrice:  35000,
			Confidence:       75,
			Duration:         "10 days",
			AutoBookEligible: false,
			ExpiresAt:        now.Add(3 * time.Hour),
		},
	}

	// Копия на каждый вызов: вызывающая сторона может мутировать срез.
	return lo.Map(fixtures, func(deal entity.Deal, _ int) entity.Deal {
		return deal
	}), nil
}
