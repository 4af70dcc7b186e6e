package booking

import "sync"

// Ledger единственный разделяемый мутабельный ресурс движка: доступный
// баланс. Все проверки доступности с последующим списанием выполняются как
// одна критическая секция, чтобы две сделки не увели баланс в минус наперегонки.
type Ledger struct {
	mu      sync.Mutex
	balance int64
}

func NewLedger(balance int64) *Ledger {
	return &Ledger{balance: balance}
}

// Balance текущий остаток.
func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance
}

// Set заменяет остаток (внешнее событие обновления баланса).
func (l *Ledger) Set(balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance = balance
}

// Reserve атомарно проверяет остаток и списывает сумму. Возвращает false,
// если денег не хватает; баланс при этом не меняется.
func (l *Ledger) Reserve(amount int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.balance {
		return false
	}

	l.balance -= amount

	return true
}

// Refund возвращает резерв при отказе провайдера или вытеснении попытки.
func (l *Ledger) Refund(amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance += amount
}
