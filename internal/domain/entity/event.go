package entity

import "time"

// DealEvent событие жизненного цикла для Notification Sink. Поток односторонний:
// UI потребляет события, но ничего не возвращает в движок.
type DealEvent struct {
	DealID    string
	Status    DealStatus
	Timestamp time.Time
	Detail    string

	// Снимок сделки на момент события, для форматирования уведомлений.
	Deal Deal
}
