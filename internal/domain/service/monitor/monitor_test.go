package monitor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trip_sentinel/internal/domain"
	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/internal/domain/service/booking"
	"trip_sentinel/internal/domain/service/monitor"
	"trip_sentinel/pkg/errcodes"
)

type stubProvider struct {
	mu        sync.Mutex
	commit    bool
	attempts  int
	cancelled []string
	block     chan struct{}
}

func (p *stubProvider) AttemptBooking(ctx context.Context, _, _ string, _ int64) (booking.ProviderResult, error) {
	p.mu.Lock()
	p.attempts++
	block := p.block
	commit := p.commit
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return booking.ProviderResult{}, ctx.Err()
		}
	}

	if !commit {
		return booking.ProviderResult{Committed: false, Reason: "sold out"}, nil
	}

	return booking.ProviderResult{Committed: true}, nil
}

func (p *stubProvider) CancelBooking(_ context.Context, attemptID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelled = append(p.cancelled, attemptID)

	return nil
}

func (p *stubProvider) attemptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.attempts
}

func baseProfile() entity.BudgetProfile {
	return entity.BudgetProfile{
		MaxTripBudget:       300000,
		PriceAlertThreshold: 80,
		AutoBookingEnabled:  true,
		AvailableBalance:    500000,
	}
}

func tokyoDeal() entity.Deal {
	return entity.Deal{
		ID:               "tokyo-1",
		Destination:      "Tokyo",
		Country:          "Japan",
		Price:            240000,
		MarketPrice:      320000,
		Confidence:       92,
		AutoBookEligible: true,
		ExpiresAt:        time.Now().Add(time.Hour),
	}
}

// newEngine собирает монитор с настоящим планировщиком поверх стабового
// провайдера, как это делает application.Run.
func newEngine(
	t *testing.T,
	profile entity.BudgetProfile,
	provider booking.Provider,
	opts ...monitor.Option,
) (*monitor.Monitor, *booking.Scheduler, chan entity.DealEvent) {
	t.Helper()

	events := make(chan entity.DealEvent, 64)
	ledger := booking.NewLedger(0)
	m := monitor.New(profile, ledger, events, opts...)

	scheduler := booking.NewScheduler(ledger, provider, m, booking.WithMaxAttempts(2))
	m.BindScheduler(scheduler)

	return m, scheduler, events
}

func drainEvents(events chan entity.DealEvent) []entity.DealEvent {
	var result []entity.DealEvent

	for {
		select {
		case event := <-events:
			result = append(result, event)
		default:
			return result
		}
	}
}

func statuses(events []entity.DealEvent) []entity.DealStatus {
	result := make([]entity.DealStatus, 0, len(events))
	for _, event := range events {
		result = append(result, event.Status)
	}

	return result
}

func TestIngestValidation(t *testing.T) {
	rq := require.New(t)

	m, _, _ := newEngine(t, baseProfile(), &stubProvider{commit: true})

	cases := []struct {
		name string
		deal entity.Deal
	}{
		{"empty id", entity.Deal{Price: 100, MarketPrice: 200, ExpiresAt: time.Now().Add(time.Hour)}},
		{"zero price", entity.Deal{ID: "d", MarketPrice: 200, ExpiresAt: time.Now().Add(time.Hour)}},
		{"zero market price", entity.Deal{ID: "d", Price: 100, ExpiresAt: time.Now().Add(time.Hour)}},
		{"already expired", entity.Deal{ID: "d", Price: 100, MarketPrice: 200, ExpiresAt: time.Now().Add(-time.Hour)}},
	}

	for _, tc := range cases {
		err := m.Ingest(context.Background(), tc.deal)
		rq.Error(err, tc.name)
		rq.True(domain.HasCode(err, errcodes.InvalidDeal), tc.name)
	}

	rq.Empty(m.Deals())
}

func TestHappyPathAutoBooking(t *testing.T) {
	rq := require.New(t)

	provider := &stubProvider{commit: true}
	m, scheduler, events := newEngine(t, baseProfile(), provider)

	rq.NoError(m.Ingest(context.Background(), tokyoDeal()))
	scheduler.Close()

	// Watching -> Eligible -> Booking -> Booked, ровно два внешних события.
	got := drainEvents(events)
	rq.Equal([]entity.DealStatus{entity.DealStatusEligible, entity.DealStatusBooked}, statuses(got))

	// Списано ровно по цене сделки.
	rq.EqualValues(260000, m.Profile().AvailableBalance)

	// Терминальная сделка выселена, повторный инжест из фида — no-op.
	rq.Empty(m.Deals())
	rq.NoError(m.Ingest(context.Background(), tokyoDeal()))
	rq.Empty(m.Deals())
	rq.Empty(drainEvents(events))
	rq.Equal(1, provider.attemptCount())
}

func TestThresholdBlocksBooking(t *testing.T) {
	rq := require.New(t)

	provider := &stubProvider{commit: true}
	m, scheduler, events := newEngine(t, baseProfile(), provider)

	// 2800/3200 = 87.5% > 80% — скидки не хватает.
	deal := tokyoDeal()
	deal.Price = 280000

	rq.NoError(m.Ingest(context.Background(), deal))
	scheduler.Close()

	rq.Empty(drainEvents(events))
	rq.Zero(provider.attemptCount())

	tracked, err := m.Deal(deal.ID)
	rq.NoError(err)
	rq.Equal(entity.DealStatusWatching, tracked.Status)
	rq.True(tracked.WithinBudget)
	rq.False(tracked.MeetsThreshold)
}

func TestIdempotentReingest(t *testing.T) {
	rq := require.New(t)

	profile := baseProfile()
	profile.AutoBookingEnabled = false

	m, _, events := newEngine(t, profile, &stubProvider{commit: true})

	deal := tokyoDeal()
	deal.AutoBookEligible = false

	rq.NoError(m.Ingest(context.Background(), deal))
	rq.NoError(m.Ingest(context.Background(), deal))
	rq.NoError(m.Ingest(context.Background(), deal))

	rq.Len(m.Deals(), 1)
	rq.Empty(drainEvents(events))

	// Ревизия цены — это уже не no-op.
	deal.Price = 230000
	rq.NoError(m.Ingest(context.Background(), deal))

	tracked, err := m.Deal(deal.ID)
	rq.NoError(err)
	rq.EqualValues(230000, tracked.Deal.Price)
}

func TestBalanceRaceExactlyOneBooks(t *testing.T) {
	rq := require.New(t)

	// Баланса хватает ровно на одну из двух сделок. Пока авто-бронирование
	// выключено, обе лежат в Watching; включение квалифицирует обе атомарно
	// под одной версией профиля, и их попытки гонятся за одним резервом.
	profile := baseProfile()
	profile.AvailableBalance = 300000
	profile.AutoBookingEnabled = false

	provider := &stubProvider{commit: true}
	m, scheduler, events := newEngine(t, profile, provider)

	first := tokyoDeal()
	first.ID = "lisbon-1"
	first.Price = 260000
	first.MarketPrice = 400000

	second := tokyoDeal()
	second.ID = "osaka-1"
	second.Price = 260000
	second.MarketPrice = 400000

	rq.NoError(m.Ingest(context.Background(), first))
	rq.NoError(m.Ingest(context.Background(), second))
	rq.Empty(drainEvents(events))

	profile.AutoBookingEnabled = true
	rq.NoError(m.SetBudgetProfile(context.Background(), profile))

	scheduler.Close()

	var booked, watching int

	got := drainEvents(events)
	for _, event := range got {
		if event.Status == entity.DealStatusBooked {
			booked++
		}
	}

	// Ровно одна дошла до Booked, вторая вернулась в Watching.
	rq.Equal(1, booked)
	rq.EqualValues(40000, m.Profile().AvailableBalance)

	for _, tracked := range m.Deals() {
		rq.Equal(entity.DealStatusWatching, tracked.Status)

		watching++
	}

	rq.Equal(1, watching)

	attempts := scheduler.Attempts()

	var insufficient int

	for _, attempt := range attempts {
		if attempt.Outcome == entity.OutcomeInsufficientFunds {
			insufficient++
		}
	}

	rq.Equal(1, insufficient)
}

func TestProfileChangeSupersedesInFlightAttempt(t *testing.T) {
	rq := require.New(t)

	block := make(chan struct{})
	provider := &stubProvider{commit: true, block: block}
	m, scheduler, events := newEngine(t, baseProfile(), provider)

	deal := tokyoDeal()
	rq.NoError(m.Ingest(context.Background(), deal))

	rq.Eventually(func() bool {
		return provider.attemptCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Выключение авто-бронирования бьёт попытку в полёте. Профиль строится из
	// текущего, как это делает PUT после GET: баланс в нём уже за вычетом
	// резерва, возврат резерва восстановит исходные 5000.
	profile := m.Profile()
	profile.AutoBookingEnabled = false
	rq.NoError(m.SetBudgetProfile(context.Background(), profile))

	scheduler.Close()
	close(block)

	tracked, err := m.Deal(deal.ID)
	rq.NoError(err)
	rq.Equal(entity.DealStatusWatching, tracked.Status)

	// Резерв возвращён, бронь у провайдера отменена, Booked не случился.
	rq.EqualValues(500000, m.Profile().AvailableBalance)
	rq.Len(provider.cancelled, 1)

	for _, event := range drainEvents(events) {
		rq.NotEqual(entity.DealStatusBooked, event.Status)
	}
}

func TestBalanceRefreshRequalifiesDeal(t *testing.T) {
	rq := require.New(t)

	profile := baseProfile()
	profile.AvailableBalance = 100000

	provider := &stubProvider{commit: true}
	m, scheduler, events := newEngine(t, profile, provider)

	rq.NoError(m.Ingest(context.Background(), tokyoDeal()))
	rq.Empty(drainEvents(events))

	tracked, err := m.Deal("tokyo-1")
	rq.NoError(err)
	rq.Equal(entity.DealStatusWatching, tracked.Status)

	// Рефреш баланса дотягивает сделку до пригодности.
	rq.NoError(m.SetAvailableBalance(context.Background(), 500000))
	scheduler.Close()

	got := drainEvents(events)
	rq.Equal([]entity.DealStatus{entity.DealStatusEligible, entity.DealStatusBooked}, statuses(got))
	rq.EqualValues(260000, m.Profile().AvailableBalance)
}

func TestSetBudgetProfileValidation(t *testing.T) {
	rq := require.New(t)

	m, _, _ := newEngine(t, baseProfile(), &stubProvider{commit: true})

	bad := baseProfile()
	bad.PriceAlertThreshold = 40

	err := m.SetBudgetProfile(context.Background(), bad)
	rq.Error(err)
	rq.True(domain.HasCode(err, errcodes.InvalidBudgetProfile))

	// Версия растёт монотонно только на успешных заменах.
	rq.EqualValues(1, m.Profile().Version)

	rq.NoError(m.SetBudgetProfile(context.Background(), baseProfile()))
	rq.EqualValues(2, m.Profile().Version)
}

func TestSweepExpired(t *testing.T) {
	rq := require.New(t)

	current := time.Now()

	var mu sync.Mutex

	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		return current
	}

	profile := baseProfile()
	profile.AutoBookingEnabled = false

	m, _, events := newEngine(t, profile, &stubProvider{commit: true}, monitor.WithClock(clock))

	deal := tokyoDeal()
	deal.ExpiresAt = current.Add(time.Hour)

	rq.NoError(m.Ingest(context.Background(), deal))

	// До срока — ничего не выселяется.
	rq.Zero(m.SweepExpired(context.Background(), current.Add(30*time.Minute)))
	rq.Len(m.Deals(), 1)

	mu.Lock()
	current = current.Add(2 * time.Hour)
	mu.Unlock()

	rq.Equal(1, m.SweepExpired(context.Background(), clock()))
	rq.Empty(m.Deals())

	got := drainEvents(events)
	rq.Equal([]entity.DealStatus{entity.DealStatusExpired}, statuses(got))

	_, err := m.Deal(deal.ID)
	rq.True(domain.HasCode(err, errcodes.DealNotFound))
}

func TestProviderRejectionIsTerminal(t *testing.T) {
	rq := require.New(t)

	provider := &stubProvider{commit: false}
	m, scheduler, events := newEngine(t, baseProfile(), provider)

	rq.NoError(m.Ingest(context.Background(), tokyoDeal()))
	scheduler.Close()

	got := drainEvents(events)
	rq.Equal([]entity.DealStatus{entity.DealStatusEligible, entity.DealStatusFailed}, statuses(got))

	// Деньги не потеряны, сделка терминальна и не возвращается из фида.
	rq.EqualValues(500000, m.Profile().AvailableBalance)
	rq.Empty(m.Deals())

	rq.NoError(m.Ingest(context.Background(), tokyoDeal()))
	rq.Empty(m.Deals())
}
