package server

import (
	"fmt"
	"time"

	"trip_sentinel/internal/domain"
	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/pkg/errcodes"
	"trip_sentinel/pkg/rest"
)

func newRESTBudgetProfile(profile entity.BudgetProfile) rest.BudgetProfile {
	return rest.BudgetProfile{
		MaxTripBudget:       profile.MaxTripBudget,
		PriceAlertThreshold: profile.PriceAlertThreshold,
		AutoBookingEnabled:  profile.AutoBookingEnabled,
		AvailableBalance:    profile.AvailableBalance,
		Version:             profile.Version,
	}
}

func newDomainBudgetProfile(profile rest.BudgetProfile) entity.BudgetProfile {
	return entity.BudgetProfile{
		MaxTripBudget:       profile.MaxTripBudget,
		PriceAlertThreshold: profile.PriceAlertThreshold,
		AutoBookingEnabled:  profile.AutoBookingEnabled,
		AvailableBalance:    profile.AvailableBalance,
	}
}

func newRESTDeal(deal entity.Deal) rest.Deal {
	return rest.Deal{
		ID:               deal.ID,
		Destination:      deal.Destination,
		Country:          deal.Country,
		Price:            deal.Price,
		MarketPrice:      deal.MarketPrice,
		FlightPrice:      deal.FlightPrice,
		HotelPrice:       deal.HotelPrice,
		ExperiencePrice:  deal.ExperiencePrice,
		Confidence:       deal.Confidence,
		Duration:         deal.Duration,
		AutoBookEligible: deal.AutoBookEligible,
		ExpiresAt:        deal.ExpiresAt.Format(time.RFC3339),
	}
}

func newDomainDeal(deal rest.Deal) (entity.Deal, error) {
	expiresAt, err := time.Parse(time.RFC3339, deal.ExpiresAt)
	if err != nil {
		return entity.Deal{}, domain.WrapError(
			fmt.Errorf("time.Parse expiresAt: %w", err),
			errcodes.InvalidDeal,
			"expiresAt must be RFC 3339",
		)
	}

	return entity.Deal{
		ID:               deal.ID,
		Destination:      deal.Destination,
		Country:          deal.Country,
		Price:            deal.Price,
		MarketPrice:      deal.MarketPrice,
		FlightPrice:      deal.FlightPrice,
		HotelPrice:       deal.HotelPrice,
		ExperiencePrice:  deal.ExperiencePrice,
		Confidence:       deal.Confidence,
		Duration:         deal.Duration,
		AutoBookEligible: deal.AutoBookEligible,
		ExpiresAt:        expiresAt,
	}, nil
}

func newRESTTrackedDeal(tracked entity.TrackedDeal) rest.TrackedDeal {
	return rest.TrackedDeal{
		Deal:           newRESTDeal(tracked.Deal),
		Status:         tracked.Status.String(),
		WithinBudget:   tracked.WithinBudget,
		MeetsThreshold: tracked.MeetsThreshold,
		Savings:        tracked.Deal.Savings(),
		ProfileVersion: tracked.ProfileVersion,
	}
}

func newRESTBookingAttempt(attempt entity.BookingAttempt) rest.BookingAttempt {
	result := rest.BookingAttempt{
		ID:          attempt.ID,
		DealID:      attempt.DealID,
		Price:       attempt.Price,
		Outcome:     attempt.Outcome.String(),
		Retries:     attempt.Retries,
		Detail:      attempt.Detail,
		AttemptedAt: attempt.AttemptedAt.Format(time.RFC3339),
	}

	if !attempt.FinishedAt.IsZero() {
		result.FinishedAt = attempt.FinishedAt.Format(time.RFC3339)
	}

	return result
}
