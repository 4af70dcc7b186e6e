// Package policy содержит чистые функции оценки сделок относительно профиля
// бюджета. Без состояния и побочных эффектов: одинаковые входы всегда дают
// одинаковый результат, вызывать можно конкурентно без синхронизации.
package policy

import (
	"trip_sentinel/internal/domain/entity"
)

// IsAffordable сделка укладывается и в потолок бюджета, и в доступный баланс.
// Ровно на границе (price == maxTripBudget) сделка ещё доступна.
func IsAffordable(deal entity.Deal, profile entity.BudgetProfile) bool {
	return deal.Price <= profile.MaxTripBudget && deal.Price <= profile.AvailableBalance
}

// MeetsAlertThreshold цена не выше threshold% от рыночной. Сравнение в целых
// числах, чтобы не ловить погрешность float на границе.
func MeetsAlertThreshold(deal entity.Deal, profile entity.BudgetProfile) bool {
	if deal.MarketPrice <= 0 {
		return false
	}

	return deal.Price*100 <= deal.MarketPrice*int64(profile.PriceAlertThreshold)
}

// IsAutoBookEligible конъюнкция всех ворот: авто-бронирование включено, тип
// сделки это допускает, сделка доступна по деньгам и проходит порог скидки.
func IsAutoBookEligible(deal entity.Deal, profile entity.BudgetProfile) bool {
	return profile.AutoBookingEnabled &&
		deal.AutoBookEligible &&
		IsAffordable(deal, profile) &&
		MeetsAlertThreshold(deal, profile)
}
