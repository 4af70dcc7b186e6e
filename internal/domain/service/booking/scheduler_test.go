package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/internal/domain/service/booking"
)

type fakeTracker struct {
	mu       sync.Mutex
	deal     entity.Deal
	profile  entity.BudgetProfile
	began    []string
	booked   []entity.BookingAttempt
	failed   []entity.BookingAttempt
	released []entity.AttemptOutcome
}

func (t *fakeTracker) BeginBooking(dealID string) (entity.Deal, entity.BudgetProfile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.began = append(t.began, dealID)

	return t.deal, t.profile, nil
}

func (t *fakeTracker) CompleteBooking(_ context.Context, _ string, attempt entity.BookingAttempt) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.booked = append(t.booked, attempt)
}

func (t *fakeTracker) FailBooking(_ context.Context, _ string, attempt entity.BookingAttempt) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failed = append(t.failed, attempt)
}

func (t *fakeTracker) ReleaseBooking(_ context.Context, _ string, outcome entity.AttemptOutcome, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.released = append(t.released, outcome)
}

type fakeProvider struct {
	mu        sync.Mutex
	attempts  int
	cancelled []string
	attemptFn func(call int) (booking.ProviderResult, error)
	block     chan struct{} // если не nil, вызов ждёт закрытия канала
}

func (p *fakeProvider) AttemptBooking(ctx context.Context, _, _ string, _ int64) (booking.ProviderResult, error) {
	p.mu.Lock()
	p.attempts++
	call := p.attempts
	block := p.block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return booking.ProviderResult{}, ctx.Err()
		}
	}

	return p.attemptFn(call)
}

func (p *fakeProvider) CancelBooking(_ context.Context, attemptID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelled = append(p.cancelled, attemptID)

	return nil
}

func (p *fakeProvider) attemptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.attempts
}

func testDeal() entity.Deal {
	return entity.Deal{
		ID:               "deal-1",
		Destination:      "Tokyo",
		Price:            240000,
		MarketPrice:      320000,
		AutoBookEligible: true,
		ExpiresAt:        time.Now().Add(time.Hour),
	}
}

func testProfile() entity.BudgetProfile {
	return entity.BudgetProfile{
		MaxTripBudget:       300000,
		PriceAlertThreshold: 80,
		AutoBookingEnabled:  true,
		AvailableBalance:    500000,
		Version:             1,
	}
}

func TestSubmitAtMostOnce(t *testing.T) {
	rq := require.New(t)

	deal := testDeal()
	tracker := &fakeTracker{deal: deal, profile: testProfile()}
	provider := &fakeProvider{
		attemptFn: func(int) (booking.ProviderResult, error) {
			return booking.ProviderResult{Committed: true}, nil
		},
	}

	ledger := booking.NewLedger(500000)
	scheduler := booking.NewScheduler(ledger, provider, tracker)

	const submitters = 50

	var wg sync.WaitGroup

	ids := make([]string, submitters)

	for i := range submitters {
		wg.Add(1)

		go func() {
			defer wg.Done()

			attempt, err := scheduler.Submit(context.Background(), deal)
			rq.NoError(err)

			ids[i] = attempt.ID
		}()
	}

	wg.Wait()
	scheduler.Close()

	// Все конкурентные сабмиты получили одну и ту же попытку.
	for _, id := range ids {
		rq.Equal(ids[0], id)
	}

	rq.Len(tracker.began, 1)
	rq.Len(tracker.booked, 1)
	rq.Equal(entity.OutcomeCommitted, tracker.booked[0].Outcome)
	rq.EqualValues(260000, ledger.Balance())

	// Сабмит после коммита — no-op с той же попыткой.
	attempt, err := scheduler.Submit(context.Background(), deal)
	rq.NoError(err)
	rq.Equal(ids[0], attempt.ID)
	rq.Equal(entity.OutcomeCommitted, attempt.Outcome)
	rq.Len(tracker.began, 1)
}

func TestProviderRejectedAfterRetries(t *testing.T) {
	rq := require.New(t)

	deal := testDeal()
	tracker := &fakeTracker{deal: deal, profile: testProfile()}
	provider := &fakeProvider{
		attemptFn: func(int) (booking.ProviderResult, error) {
			return booking.ProviderResult{Committed: false, Reason: "sold out"}, nil
		},
	}

	ledger := booking.NewLedger(500000)
	scheduler := booking.NewScheduler(ledger, provider, tracker,
		booking.WithMaxAttempts(3),
		booking.WithProviderTimeout(time.Second),
	)

	_, err := scheduler.Submit(context.Background(), deal)
	rq.NoError(err)

	scheduler.Close()

	rq.Equal(3, provider.attemptCount())
	rq.Len(tracker.failed, 1)
	rq.Equal(entity.OutcomeProviderRejected, tracker.failed[0].Outcome)
	rq.Equal(2, tracker.failed[0].Retries)

	// Резерв возвращён.
	rq.EqualValues(500000, ledger.Balance())
}

func TestProviderRecoversOnRetry(t *testing.T) {
	rq := require.New(t)

	deal := testDeal()
	tracker := &fakeTracker{deal: deal, profile: testProfile()}
	provider := &fakeProvider{
		attemptFn: func(call int) (booking.ProviderResult, error) {
			if call < 3 {
				return booking.ProviderResult{Committed: false, Reason: "timeout"}, nil
			}
			return booking.ProviderResult{Committed: true}, nil
		},
	}

	ledger := booking.NewLedger(500000)
	scheduler := booking.NewScheduler(ledger, provider, tracker, booking.WithMaxAttempts(3))

	_, err := scheduler.Submit(context.Background(), deal)
	rq.NoError(err)

	scheduler.Close()

	rq.Equal(3, provider.attemptCount())
	rq.Len(tracker.booked, 1)
	rq.EqualValues(260000, ledger.Balance())
}

func TestInsufficientFundsReturnsDealToWatching(t *testing.T) {
	rq := require.New(t)

	deal := testDeal()
	tracker := &fakeTracker{deal: deal, profile: testProfile()}
	provider := &fakeProvider{
		attemptFn: func(int) (booking.ProviderResult, error) {
			return booking.ProviderResult{Committed: true}, nil
		},
	}

	// Денег меньше цены сделки.
	ledger := booking.NewLedger(100000)
	scheduler := booking.NewScheduler(ledger, provider, tracker)

	_, err := scheduler.Submit(context.Background(), deal)
	rq.NoError(err)

	scheduler.Close()

	rq.Zero(provider.attemptCount())
	rq.Len(tracker.released, 1)
	rq.Equal(entity.OutcomeInsufficientFunds, tracker.released[0])
	rq.EqualValues(100000, ledger.Balance())

	// Слот освобождён: новая попытка возможна после пополнения баланса.
	ledger.Set(500000)

	_, err = scheduler.Submit(context.Background(), deal)
	rq.NoError(err)

	scheduler.Close()

	rq.Len(tracker.booked, 1)
	rq.EqualValues(260000, ledger.Balance())
}

func TestWithdrawMidAttempt(t *testing.T) {
	rq := require.New(t)

	deal := testDeal()
	tracker := &fakeTracker{deal: deal, profile: testProfile()}
	block := make(chan struct{})
	provider := &fakeProvider{
		block: block,
		attemptFn: func(int) (booking.ProviderResult, error) {
			return booking.ProviderResult{Committed: true}, nil
		},
	}

	ledger := booking.NewLedger(500000)
	scheduler := booking.NewScheduler(ledger, provider, tracker)

	_, err := scheduler.Submit(context.Background(), deal)
	rq.NoError(err)

	// Ждём, пока попытка дойдёт до провайдера, и отзываем её.
	rq.Eventually(func() bool {
		return provider.attemptCount() == 1
	}, time.Second, 5*time.Millisecond)

	rq.True(scheduler.Withdraw(deal.ID))

	scheduler.Close()
	close(block)

	rq.Len(tracker.released, 1)
	rq.Equal(entity.OutcomeSuperseded, tracker.released[0])
	rq.Empty(tracker.booked)

	// Резерв возвращён, бронь у провайдера отменена.
	rq.EqualValues(500000, ledger.Balance())
	rq.Len(provider.cancelled, 1)
}

func TestWithdrawAfterCommitIsNoop(t *testing.T) {
	rq := require.New(t)

	deal := testDeal()
	tracker := &fakeTracker{deal: deal, profile: testProfile()}
	provider := &fakeProvider{
		attemptFn: func(int) (booking.ProviderResult, error) {
			return booking.ProviderResult{Committed: true}, nil
		},
	}

	ledger := booking.NewLedger(500000)
	scheduler := booking.NewScheduler(ledger, provider, tracker)

	_, err := scheduler.Submit(context.Background(), deal)
	rq.NoError(err)

	scheduler.Close()

	// Коммит уже состоялся: отмена — no-op, Booked побеждает.
	rq.False(scheduler.Withdraw(deal.ID))
	rq.Len(tracker.booked, 1)
	rq.EqualValues(260000, ledger.Balance())

	attempt, err := scheduler.AttemptByDeal(deal.ID)
	rq.NoError(err)
	rq.Equal(entity.OutcomeCommitted, attempt.Outcome)
}
