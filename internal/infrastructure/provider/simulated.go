package provider

import (
	"context"
	"sync"
	"time"

	"trip_sentinel/internal/domain/service/booking"
)

// Simulated провайдер для демо-режима: подтверждает бронь после задержки,
// имитирующей внешний вызов. Идемпотентен по attemptID.
type Simulated struct {
	delay time.Duration

	mu        sync.Mutex
	committed map[string]bool
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{
		delay:     delay,
		committed: make(map[string]bool),
	}
}

func (p *Simulated) AttemptBooking(
	ctx context.Context,
	attemptID, _ string,
	_ int64,
) (booking.ProviderResult, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return booking.ProviderResult{}, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.committed[attemptID] = true

	return booking.ProviderResult{Committed: true}, nil
}

func (p *Simulated) CancelBooking(_ context.Context, attemptID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.committed, attemptID)

	return nil
}
