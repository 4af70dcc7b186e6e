// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

// BudgetProfile Настройки бюджета и авто-бронирования. Все денежные суммы в
// минорных единицах валюты (центах).
type BudgetProfile struct {
	MaxTripBudget       int64 `json:"maxTripBudget" validate:"required,gt=0"`
	PriceAlertThreshold int   `json:"priceAlertThreshold" validate:"required,gte=50,lte=95"`
	AutoBookingEnabled  bool  `json:"autoBookingEnabled"`
	AvailableBalance    int64 `json:"availableBalance" validate:"gte=0"`
	Version             int64 `json:"version,omitempty"`
}

// Deal Сделка из фида.
type Deal struct {
	ID               string `json:"id" validate:"required"`
	Destination      string `json:"destination" validate:"required"`
	Country          string `json:"country,omitempty"`
	Price            int64  `json:"price" validate:"required,gt=0"`
	MarketPrice      int64  `json:"marketPrice" validate:"required,gt=0"`
	FlightPrice      int64  `json:"flightPrice,omitempty"`
	HotelPrice       int64  `json:"hotelPrice,omitempty"`
	ExperiencePrice  int64  `json:"experiencePrice,omitempty"`
	Confidence       int    `json:"confidence" validate:"gte=0,lte=100"`
	Duration         string `json:"duration,omitempty"`
	AutoBookEligible bool   `json:"autoBookEligible"`
	ExpiresAt        string `json:"expiresAt" validate:"required"` // RFC 3339
}

// TrackedDeal Сделка вместе с производным состоянием движка.
type TrackedDeal struct {
	Deal           Deal   `json:"deal"`
	Status         string `json:"status"`
	WithinBudget   bool   `json:"withinBudget"`
	MeetsThreshold bool   `json:"meetsThreshold"`
	Savings        int64  `json:"savings"`
	ProfileVersion int64  `json:"profileVersion"`
}

// BookingAttempt Запись о попытке бронирования.
type BookingAttempt struct {
	ID          string `json:"id"`
	DealID      string `json:"dealId"`
	Price       int64  `json:"price"`
	Outcome     string `json:"outcome"`
	Retries     int    `json:"retries"`
	Detail      string `json:"detail,omitempty"`
	AttemptedAt string `json:"attemptedAt"`
	FinishedAt  string `json:"finishedAt,omitempty"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`
}

// ErrorCode Код ошибки
type ErrorCode string
