package entity

import "time"

// AttemptOutcome исход попытки бронирования.
type AttemptOutcome string

const (
	OutcomePending           AttemptOutcome = "pending"
	OutcomeCommitted         AttemptOutcome = "committed"
	OutcomeInsufficientFunds AttemptOutcome = "insufficient_funds"
	OutcomeProviderRejected  AttemptOutcome = "provider_rejected"
	OutcomeSuperseded        AttemptOutcome = "superseded"
)

func (o AttemptOutcome) String() string {
	return string(o)
}

// BookingAttempt запись о попытке бронирования. Создаётся планировщиком,
// неизменяема после записи исхода. По одному dealId только одна
// не-Superseded попытка может дойти до Committed.
type BookingAttempt struct {
	ID          string // также служит ключом идемпотентности для провайдера
	DealID      string
	Price       int64
	Outcome     AttemptOutcome
	Retries     int
	Detail      string
	AttemptedAt time.Time
	FinishedAt  time.Time
}
