package entity

import "time"

// DealStatus статус отслеживаемой сделки. Переходы монотонны, кроме пары
// Watching <-> Eligible, которая может колебаться до терминального статуса.
type DealStatus string

const (
	DealStatusWatching DealStatus = "watching"
	DealStatusEligible DealStatus = "eligible"
	DealStatusBooking  DealStatus = "booking"
	DealStatusBooked   DealStatus = "booked"
	DealStatusFailed   DealStatus = "failed"
	DealStatusExpired  DealStatus = "expired"
)

func (s DealStatus) String() string {
	return string(s)
}

// Terminal сообщает, что из статуса больше нет переходов.
func (s DealStatus) Terminal() bool {
	switch s {
	case DealStatusBooked, DealStatusFailed, DealStatusExpired:
		return true
	default:
		return false
	}
}

// Deal каноничная сделка из фида. Все цены в минорных единицах (центах).
// Неизменяема после инжеста, кроме Price/ExpiresAt при ревизии фида.
type Deal struct {
	ID               string
	Destination      string
	Country          string
	Price            int64
	MarketPrice      int64 // рыночная цена, эталон для порога скидки
	FlightPrice      int64
	HotelPrice       int64
	ExperiencePrice  int64
	Confidence       int // 0-100, оценка фида
	Duration         string
	AutoBookEligible bool // тип сделки допускает бронирование без участия пользователя
	ExpiresAt        time.Time
}

// Savings экономия относительно рыночной цены.
func (d Deal) Savings() int64 {
	if d.MarketPrice <= d.Price {
		return 0
	}
	return d.MarketPrice - d.Price
}

// DiscountPercent скидка в процентах от рыночной цены.
func (d Deal) DiscountPercent() float64 {
	if d.MarketPrice <= 0 {
		return 0
	}
	return float64(d.Savings()) / float64(d.MarketPrice) * 100
}

// Equal сравнивает содержимое сделки для идемпотентного повторного инжеста.
func (d Deal) Equal(other Deal) bool {
	return d.ID == other.ID &&
		d.Destination == other.Destination &&
		d.Country == other.Country &&
		d.Price == other.Price &&
		d.MarketPrice == other.MarketPrice &&
		d.FlightPrice == other.FlightPrice &&
		d.HotelPrice == other.HotelPrice &&
		d.ExperiencePrice == other.ExperiencePrice &&
		d.Confidence == other.Confidence &&
		d.Duration == other.Duration &&
		d.AutoBookEligible == other.AutoBookEligible &&
		d.ExpiresAt.Equal(other.ExpiresAt)
}

// TrackedDeal сделка вместе с производным состоянием монитора.
type TrackedDeal struct {
	Deal           Deal
	Status         DealStatus
	WithinBudget   bool
	MeetsThreshold bool
	ProfileVersion int64 // версия профиля, под которой считалась eligibility
	FirstSeenAt    time.Time
	UpdatedAt      time.Time
}
