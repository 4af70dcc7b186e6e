package entity

import (
	"trip_sentinel/internal/domain"
	"trip_sentinel/pkg/errcodes"
)

const (
	MinPriceAlertThreshold = 50
	MaxPriceAlertThreshold = 95
)

// BudgetProfile настройки бюджета пользователя. Передаётся явно как значение:
// каждая переоценка берёт профиль аргументом, а не из глобального состояния.
type BudgetProfile struct {
	MaxTripBudget       int64 // центы, > 0
	PriceAlertThreshold int   // проценты, 50-95 включительно
	AutoBookingEnabled  bool
	AvailableBalance    int64 // центы, >= 0; живёт в Ledger после включения авто-бронирования
	Version             int64 // монотонная версия, присваивается монитором
}

// Validate проверяет границы профиля на входе.
func (p BudgetProfile) Validate() error {
	if p.MaxTripBudget <= 0 {
		return domain.NewError(errcodes.InvalidBudgetProfile, "max trip budget must be positive")
	}

	if p.PriceAlertThreshold < MinPriceAlertThreshold || p.PriceAlertThreshold > MaxPriceAlertThreshold {
		return domain.NewError(errcodes.InvalidBudgetProfile, "price alert threshold must be within 50-95")
	}

	if p.AvailableBalance < 0 {
		return domain.NewError(errcodes.InvalidBudgetProfile, "available balance must not be negative")
	}

	return nil
}
