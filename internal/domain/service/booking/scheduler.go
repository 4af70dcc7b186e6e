package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/xid"

	"trip_sentinel/internal/domain"
	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/internal/domain/service/policy"
	"trip_sentinel/internal/metrics"
	"trip_sentinel/pkg/contextx"
	"trip_sentinel/pkg/errcodes"
	"trip_sentinel/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// ProviderResult ответ внешнего провайдера бронирования.
type ProviderResult struct {
	Committed bool
	Reason    string
}

// Provider внешний платёжный/бронирующий провайдер. Вызов идемпотентен по
// attemptID, чтобы пережить ретраи.
type Provider interface {
	AttemptBooking(ctx context.Context, attemptID, dealID string, price int64) (ProviderResult, error)
	CancelBooking(ctx context.Context, attemptID string) error
}

// DealTracker обратная связь планировщика с монитором сделок.
type DealTracker interface {
	// BeginBooking переводит Eligible -> Booking и возвращает актуальные
	// снимки сделки и профиля. Ошибка означает, что сигнал устарел.
	BeginBooking(dealID string) (entity.Deal, entity.BudgetProfile, error)

	// CompleteBooking фиксирует терминальный статус Booked.
	CompleteBooking(ctx context.Context, dealID string, attempt entity.BookingAttempt)

	// FailBooking фиксирует терминальный статус Failed.
	FailBooking(ctx context.Context, dealID string, attempt entity.BookingAttempt)

	// ReleaseBooking возвращает сделку из Booking в живое состояние
	// (или в Expired, если срок уже вышел).
	ReleaseBooking(ctx context.Context, dealID string, outcome entity.AttemptOutcome, detail string)
}

// AttemptRepository опциональный журнал попыток.
type AttemptRepository interface {
	Save(ctx context.Context, attempt entity.BookingAttempt) error
}

type activeAttempt struct {
	attempt entity.BookingAttempt
	cancel  context.CancelFunc
	// terminal выставляется для Booked/Failed: запись остаётся в карте
	// навсегда и структурно блокирует повторный коммит по этому dealId.
	terminal bool
}

// Scheduler ядро конкурентности: не более одной активной попытки на dealId,
// сериализация списаний через Ledger, прогон каждой сделки через машину
// состояний Eligible -> Booking -> {Booked | Failed}.
type Scheduler struct {
	ledger   *Ledger
	provider Provider
	tracker  DealTracker
	repo     AttemptRepository // может быть nil

	providerTimeout time.Duration
	maxAttempts     int

	mu       sync.Mutex
	attempts map[string]*activeAttempt
	history  []entity.BookingAttempt

	wg sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

func WithProviderTimeout(timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.providerTimeout = timeout
	}
}

func WithMaxAttempts(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithAttemptRepository(repo AttemptRepository) SchedulerOption {
	return func(s *Scheduler) {
		s.repo = repo
	}
}

func NewScheduler(
	ledger *Ledger,
	provider Provider,
	tracker DealTracker,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		ledger:          ledger,
		provider:        provider,
		tracker:         tracker,
		providerTimeout: 30 * time.Second,
		maxAttempts:     3,
		attempts:        make(map[string]*activeAttempt),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Submit допускает ровно одну активную попытку на dealId. Повторный вызов для
// сделки в Booking/Booked — no-op, возвращающий существующую попытку; это
// держит гарантию at-most-once и под конкурентными сигналами.
func (s *Scheduler) Submit(ctx context.Context, deal entity.Deal) (entity.BookingAttempt, error) {
	s.mu.Lock()

	if existing, ok := s.attempts[deal.ID]; ok {
		attempt := existing.attempt
		s.mu.Unlock()

		return attempt, nil
	}

	attempt := entity.BookingAttempt{
		ID:          xid.New().String(),
		DealID:      deal.ID,
		Price:       deal.Price,
		Outcome:     entity.OutcomePending,
		AttemptedAt: time.Now(),
	}

	// Контекст попытки отвязан от контекста вызывающего: бронирование живёт
	// дольше сигнала о пригодности. Withdraw отменяет именно его.
	attemptCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.attempts[deal.ID] = &activeAttempt{
		attempt: attempt,
		cancel:  cancel,
	}

	s.mu.Unlock()

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(attemptCtx, attempt, deal)
	}()

	return attempt, nil
}

// Withdraw отменяет активную попытку (смена профиля, ревизия цены, экспирация).
// Если коммит уже состоялся, отмена становится no-op: Booked побеждает.
func (s *Scheduler) Withdraw(dealID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.attempts[dealID]
	if !ok || active.terminal {
		return false
	}

	active.cancel()

	return true
}

// AttemptByDeal возвращает последнюю известную попытку по сделке.
func (s *Scheduler) AttemptByDeal(dealID string) (entity.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active, ok := s.attempts[dealID]; ok {
		return active.attempt, nil
	}

	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].DealID == dealID {
			return s.history[i], nil
		}
	}

	return entity.BookingAttempt{}, domain.NewError(errcodes.AttemptNotFound, "no attempt for deal")
}

// Attempts история попыток (завершённые плюс активные).
func (s *Scheduler) Attempts() []entity.BookingAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entity.BookingAttempt, 0, len(s.history)+len(s.attempts))
	result = append(result, s.history...)

	for _, active := range s.attempts {
		if !active.terminal {
			result = append(result, active.attempt)
		}
	}

	return result
}

// Close дожидается завершения всех запущенных попыток.
func (s *Scheduler) Close() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, attempt entity.BookingAttempt, deal entity.Deal) {
	log := logger(ctx).With(
		slog.String(logx.FieldDealID, deal.ID),
		slog.String(logx.FieldAttemptID, attempt.ID),
	)

	currentDeal, profile, err := s.tracker.BeginBooking(deal.ID)
	if err != nil {
		log.Info("booking attempt superseded before start", logx.Error(err))
		s.finish(ctx, attempt, entity.OutcomeSuperseded, "withdrawn before booking started", 0)

		return
	}

	// Ревалидация против актуального профиля: защита от устаревших сигналов
	// о пригодности. Ворота баланса здесь нет — его атомарно проверяет Reserve.
	revalidated := profile.AutoBookingEnabled &&
		currentDeal.AutoBookEligible &&
		currentDeal.Price <= profile.MaxTripBudget &&
		policy.MeetsAlertThreshold(currentDeal, profile)

	if !revalidated {
		s.finish(ctx, attempt, entity.OutcomeSuperseded, "failed re-validation against current profile", 0)
		s.tracker.ReleaseBooking(ctx, deal.ID, entity.OutcomeSuperseded, "failed re-validation")

		return
	}

	// Оптимистичный резерв: списываем до внешнего вызова и возвращаем при
	// отказе. Внешний вызов никогда не выполняется под блокировкой Ledger.
	if !s.ledger.Reserve(currentDeal.Price) {
		log.Info("insufficient funds at commit time",
			slog.Int64("price", currentDeal.Price),
			slog.Int64("balance", s.ledger.Balance()),
		)

		metrics.BookingFailures.WithLabelValues("insufficient_funds").Inc()
		s.finish(ctx, attempt, entity.OutcomeInsufficientFunds, "available balance below deal price", 0)
		s.tracker.ReleaseBooking(ctx, deal.ID, entity.OutcomeInsufficientFunds, "insufficient funds")

		return
	}

	metrics.LedgerBalance.Set(float64(s.ledger.Balance()))

	result, retries, err := s.callProvider(ctx, attempt, currentDeal)

	switch {
	case err == nil && result.Committed:
		// Коммит состоялся: даже если отмену запросили параллельно, Booked
		// побеждает, резерв становится финальным списанием.
		metrics.BookingsCommitted.Inc()
		finished := s.finish(ctx, attempt, entity.OutcomeCommitted, "", retries)
		s.tracker.CompleteBooking(ctx, deal.ID, finished)

		log.Info("booking committed",
			slog.Int64("price", currentDeal.Price),
			slog.Int64("balance", s.ledger.Balance()),
		)

	case ctx.Err() != nil:
		// Попытку отозвали до ответа провайдера. Отменяем бронь (если
		// провайдер умеет), возвращаем резерв.
		s.cancelProviderBooking(attempt)
		s.ledger.Refund(currentDeal.Price)
		metrics.LedgerBalance.Set(float64(s.ledger.Balance()))

		s.finish(ctx, attempt, entity.OutcomeSuperseded, "withdrawn mid-attempt", retries)
		s.tracker.ReleaseBooking(ctx, deal.ID, entity.OutcomeSuperseded, "withdrawn mid-attempt")

		log.Info("booking attempt superseded")

	default:
		detail := "provider rejected booking"
		if err != nil {
			detail = err.Error()
		}

		s.ledger.Refund(currentDeal.Price)
		metrics.LedgerBalance.Set(float64(s.ledger.Balance()))
		metrics.BookingFailures.WithLabelValues("provider_rejected").Inc()

		finished := s.finish(ctx, attempt, entity.OutcomeProviderRejected, detail, retries)
		s.tracker.FailBooking(ctx, deal.ID, finished)

		log.Warn("booking failed after retries", slog.Int("retries", retries), logx.Error(err))
	}
}

// callProvider вызывает провайдера с ограниченным числом ретраев и backoff.
// Отсутствие ответа в пределах providerTimeout считается отказом для целей
// подсчёта ретраев.
func (s *Scheduler) callProvider(
	ctx context.Context,
	attempt entity.BookingAttempt,
	deal entity.Deal,
) (ProviderResult, int, error) {
	var calls int

	operation := func() (ProviderResult, error) {
		calls++

		callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		defer cancel()

		result, err := s.provider.AttemptBooking(callCtx, attempt.ID, deal.ID, deal.Price)
		if err != nil {
			return ProviderResult{}, fmt.Errorf("provider.AttemptBooking: %w", err)
		}

		if !result.Committed {
			return result, fmt.Errorf("%w: %s",
				domain.NewError(errcodes.ProviderRejected, "booking rejected"), result.Reason)
		}

		return result, nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.maxAttempts-1)),
		ctx,
	)

	result, err := backoff.RetryWithData(operation, bo)

	return result, calls - 1, err
}

func (s *Scheduler) cancelProviderBooking(attempt entity.BookingAttempt) {
	cancelCtx, cancel := context.WithTimeout(context.Background(), s.providerTimeout)
	defer cancel()

	if err := s.provider.CancelBooking(cancelCtx, attempt.ID); err != nil &&
		!errors.Is(err, context.Canceled) {
		slog.Default().Warn("provider booking cancellation failed",
			slog.String(logx.FieldAttemptID, attempt.ID),
			logx.Error(err),
		)
	}
}

// finish записывает исход попытки. Терминальные для сделки исходы (Committed,
// ProviderRejected) оставляют запись в карте активных и тем самым блокируют
// повторные Submit; остальные освобождают слот для будущих попыток.
func (s *Scheduler) finish(
	ctx context.Context,
	attempt entity.BookingAttempt,
	outcome entity.AttemptOutcome,
	detail string,
	retries int,
) entity.BookingAttempt {
	attempt.Outcome = outcome
	attempt.Detail = detail
	attempt.Retries = retries
	attempt.FinishedAt = time.Now()

	s.mu.Lock()

	switch outcome {
	case entity.OutcomeCommitted, entity.OutcomeProviderRejected:
		s.attempts[attempt.DealID] = &activeAttempt{
			attempt:  attempt,
			cancel:   func() {},
			terminal: true,
		}
	default:
		delete(s.attempts, attempt.DealID)
	}

	s.history = append(s.history, attempt)

	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, attempt); err != nil {
			logger(ctx).Error("attemptRepo.Save", logx.Error(err))
		}
	}

	return attempt
}
