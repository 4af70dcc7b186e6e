// Package monitor владеет коллекцией отслеживаемых сделок и пересчитывает их
// пригодность при каждом изменении цены, профиля или баланса.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"trip_sentinel/internal/domain"
	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/internal/domain/service/booking"
	"trip_sentinel/internal/domain/service/policy"
	"trip_sentinel/internal/metrics"
	"trip_sentinel/pkg/contextx"
	"trip_sentinel/pkg/errcodes"
	"trip_sentinel/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	// Терминальные сделки запоминаются, чтобы фид не затащил их обратно.
	terminalCacheTTL     = 24 * time.Hour
	terminalCacheCleanup = time.Hour
)

// Scheduler то, что монитору нужно от планировщика бронирований.
type Scheduler interface {
	Submit(ctx context.Context, deal entity.Deal) (entity.BookingAttempt, error)
	Withdraw(dealID string) bool
}

// DealRepository опциональный журнал отслеживаемых сделок.
type DealRepository interface {
	Save(ctx context.Context, deal entity.TrackedDeal) error
}

// Monitor хранит TrackedDeal по dealId и двигает их по машине состояний.
// Переходы статуса одной сделки атомарны; межсделочной блокировки нет —
// единственный разделяемый ресурс (баланс) живёт в booking.Ledger.
type Monitor struct {
	mu             sync.Mutex
	deals          map[string]*entity.TrackedDeal
	profile        entity.BudgetProfile
	profileVersion int64

	ledger    *booking.Ledger
	scheduler Scheduler
	events    chan<- entity.DealEvent
	repo      DealRepository // может быть nil

	terminal *cache.Cache
	now      func() time.Time
}

type Option func(*Monitor)

func WithDealRepository(repo DealRepository) Option {
	return func(m *Monitor) {
		m.repo = repo
	}
}

// WithClock подменяет источник времени в тестах.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func New(
	profile entity.BudgetProfile,
	ledger *booking.Ledger,
	events chan<- entity.DealEvent,
	opts ...Option,
) *Monitor {
	m := &Monitor{
		deals:          make(map[string]*entity.TrackedDeal),
		profile:        profile,
		profileVersion: 1,
		ledger:         ledger,
		events:         events,
		terminal:       cache.New(terminalCacheTTL, terminalCacheCleanup),
		now:            time.Now,
	}

	m.profile.Version = m.profileVersion
	ledger.Set(profile.AvailableBalance)

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// BindScheduler связывает монитор с планировщиком. Вызывается один раз при
// сборке приложения; до связывания пригодные сделки остаются в Eligible.
func (m *Monitor) BindScheduler(s Scheduler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scheduler = s
}

// Ingest вставляет новую сделку или применяет ревизию существующей.
// Повторный инжест неизменённой сделки — no-op без событий.
func (m *Monitor) Ingest(ctx context.Context, deal entity.Deal) error {
	if err := m.validate(deal); err != nil {
		metrics.DealsRejected.Inc()
		return err
	}

	// Уже отработанные сделки фид может присылать ещё долго.
	if _, done := m.terminal.Get(deal.ID); done {
		return nil
	}

	m.mu.Lock()

	tracked, exists := m.deals[deal.ID]
	if exists && tracked.Deal.Equal(deal) {
		m.mu.Unlock()
		return nil
	}

	now := m.now()

	if !exists {
		tracked = &entity.TrackedDeal{
			Deal:        deal,
			Status:      entity.DealStatusWatching,
			FirstSeenAt: now,
		}
		m.deals[deal.ID] = tracked
		metrics.DealsTracked.Set(float64(len(m.deals)))
	} else {
		// Ревизия того же id: цена/срок могли измениться.
		tracked.Deal = deal
	}

	tracked.UpdatedAt = now
	metrics.DealsIngested.Inc()

	pending := m.reevaluateLocked(ctx, tracked)

	m.mu.Unlock()

	m.dispatch(ctx, pending)

	return nil
}

// SetBudgetProfile полная замена профиля. Версия растёт монотонно, пригодность
// всех сделок пересчитывается атомарно относительно одной версии профиля.
func (m *Monitor) SetBudgetProfile(ctx context.Context, profile entity.BudgetProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	m.mu.Lock()

	m.profileVersion++
	profile.Version = m.profileVersion
	m.profile = profile
	m.ledger.Set(profile.AvailableBalance)
	metrics.LedgerBalance.Set(float64(profile.AvailableBalance))

	logger(ctx).Info("budget profile replaced",
		slog.Int64(logx.FieldProfileVersion, profile.Version),
		slog.Int64("max-trip-budget", profile.MaxTripBudget),
		slog.Int("price-alert-threshold", profile.PriceAlertThreshold),
		slog.Bool("auto-booking-enabled", profile.AutoBookingEnabled),
	)

	var pending []pendingAction

	for _, tracked := range m.deals {
		pending = append(pending, m.reevaluateLocked(ctx, tracked)...)
	}

	m.mu.Unlock()

	m.dispatch(ctx, pending)

	return nil
}

// SetAvailableBalance внешнее событие обновления баланса (рефреш от
// финансового провайдера). Рост баланса может заново квалифицировать сделки.
func (m *Monitor) SetAvailableBalance(ctx context.Context, balance int64) error {
	m.mu.Lock()
	profile := m.profile
	m.mu.Unlock()

	profile.AvailableBalance = balance

	return m.SetBudgetProfile(ctx, profile)
}

// Profile текущий профиль; баланс подставляется из Ledger, который после
// включения авто-бронирования является источником истины.
func (m *Monitor) Profile() entity.BudgetProfile {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.profileLocked()
}

// Deals снимок отслеживаемых сделок.
func (m *Monitor) Deals() []entity.TrackedDeal {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]entity.TrackedDeal, 0, len(m.deals))
	for _, tracked := range m.deals {
		result = append(result, *tracked)
	}

	return result
}

// Deal одна отслеживаемая сделка по id.
func (m *Monitor) Deal(dealID string) (entity.TrackedDeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tracked, ok := m.deals[dealID]
	if !ok {
		return entity.TrackedDeal{}, domain.NewError(errcodes.DealNotFound, "deal is not tracked")
	}

	return *tracked, nil
}

// SweepExpired переводит просроченные сделки в Expired и выселяет их.
// Сделки в Booking не выселяются сразу: отзыв отменяет попытку, а исход
// (Booked или Expired) решает горутина попытки — коммит всегда побеждает.
func (m *Monitor) SweepExpired(ctx context.Context, now time.Time) int {
	m.mu.Lock()

	var (
		pending []pendingAction
		swept   int
	)

	for id, tracked := range m.deals {
		if tracked.Deal.ExpiresAt.After(now) {
			continue
		}

		if tracked.Status == entity.DealStatusBooking {
			if m.scheduler != nil {
				m.scheduler.Withdraw(id)
			}
			continue
		}

		if tracked.Status == entity.DealStatusEligible && m.scheduler != nil {
			m.scheduler.Withdraw(id)
		}

		pending = append(pending, m.evictLocked(ctx, tracked, entity.DealStatusExpired, "deal expired"))
		metrics.DealsExpired.Inc()
		swept++
	}

	m.mu.Unlock()

	m.dispatch(ctx, pending)

	return swept
}

// BeginBooking реализует booking.DealTracker: Eligible -> Booking.
func (m *Monitor) BeginBooking(dealID string) (entity.Deal, entity.BudgetProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tracked, ok := m.deals[dealID]
	if !ok {
		return entity.Deal{}, entity.BudgetProfile{},
			domain.NewError(errcodes.DealNotFound, "deal is not tracked")
	}

	if tracked.Status != entity.DealStatusEligible {
		return entity.Deal{}, entity.BudgetProfile{},
			domain.NewError(errcodes.BookingSuperseded, "deal is no longer eligible")
	}

	tracked.Status = entity.DealStatusBooking
	tracked.UpdatedAt = m.now()

	return tracked.Deal, m.profileLocked(), nil
}

// CompleteBooking реализует booking.DealTracker: Booking -> Booked (терминал).
func (m *Monitor) CompleteBooking(ctx context.Context, dealID string, attempt entity.BookingAttempt) {
	m.mu.Lock()

	tracked, ok := m.deals[dealID]
	if !ok || tracked.Status != entity.DealStatusBooking {
		// Структурно недостижимо: Booking ставится только через BeginBooking,
		// а выселение из Booking делают только колбэки планировщика.
		m.mu.Unlock()
		logger(ctx).Error("complete booking for unknown deal", slog.String(logx.FieldDealID, dealID))

		return
	}

	action := m.evictLocked(ctx, tracked, entity.DealStatusBooked, attempt.ID)

	m.mu.Unlock()

	m.dispatch(ctx, []pendingAction{action})
}

// FailBooking реализует booking.DealTracker: Booking -> Failed (терминал).
func (m *Monitor) FailBooking(ctx context.Context, dealID string, attempt entity.BookingAttempt) {
	m.mu.Lock()

	tracked, ok := m.deals[dealID]
	if !ok || tracked.Status != entity.DealStatusBooking {
		m.mu.Unlock()
		logger(ctx).Error("fail booking for unknown deal", slog.String(logx.FieldDealID, dealID))

		return
	}

	action := m.evictLocked(ctx, tracked, entity.DealStatusFailed, attempt.Detail)

	m.mu.Unlock()

	m.dispatch(ctx, []pendingAction{action})
}

// ReleaseBooking реализует booking.DealTracker: возврат из Booking в живое
// состояние. Если срок сделки уже вышел, она уходит в Expired.
func (m *Monitor) ReleaseBooking(ctx context.Context, dealID string, outcome entity.AttemptOutcome, detail string) {
	m.mu.Lock()

	tracked, ok := m.deals[dealID]
	if !ok || tracked.Status != entity.DealStatusBooking {
		m.mu.Unlock()
		return
	}

	var pending []pendingAction

	if !tracked.Deal.ExpiresAt.After(m.now()) {
		pending = append(pending, m.evictLocked(ctx, tracked, entity.DealStatusExpired, "deal expired"))
		metrics.DealsExpired.Inc()
	} else {
		tracked.Status = entity.DealStatusWatching
		tracked.UpdatedAt = m.now()

		logger(ctx).Info("deal returned to watching",
			slog.String(logx.FieldDealID, dealID),
			slog.String("outcome", outcome.String()),
			slog.String("detail", detail),
		)

		// Состояние могло измениться, пока шла попытка: сразу пересчитываем.
		pending = append(pending, m.reevaluateLocked(ctx, tracked)...)
	}

	m.mu.Unlock()

	m.dispatch(ctx, pending)
}

func (m *Monitor) validate(deal entity.Deal) error {
	switch {
	case deal.ID == "":
		return domain.NewError(errcodes.InvalidDeal, "deal id is required")
	case deal.Price <= 0:
		return domain.NewError(errcodes.InvalidDeal, "deal price must be positive")
	case deal.MarketPrice <= 0:
		return domain.NewError(errcodes.InvalidDeal, "deal market price must be positive")
	case !deal.ExpiresAt.After(m.now()):
		return domain.NewError(errcodes.InvalidDeal, "deal is already expired")
	}

	return nil
}

func (m *Monitor) profileLocked() entity.BudgetProfile {
	profile := m.profile
	profile.AvailableBalance = m.ledger.Balance()

	return profile
}

// pendingAction события и сабмиты, собранные под блокировкой и исполняемые
// после её освобождения, чтобы не блокировать карту сделок на отправке.
type pendingAction struct {
	event  *entity.DealEvent
	submit *entity.Deal
}

// reevaluateLocked пересчитывает производное состояние сделки под текущим
// профилем. Watching <-> Eligible может колебаться до терминального статуса.
func (m *Monitor) reevaluateLocked(ctx context.Context, tracked *entity.TrackedDeal) []pendingAction {
	profile := m.profileLocked()

	tracked.WithinBudget = tracked.Deal.Price <= profile.MaxTripBudget
	tracked.MeetsThreshold = policy.MeetsAlertThreshold(tracked.Deal, profile)
	tracked.ProfileVersion = profile.Version

	eligible := policy.IsAutoBookEligible(tracked.Deal, profile)

	var pending []pendingAction

	switch {
	case tracked.Status == entity.DealStatusWatching && eligible:
		tracked.Status = entity.DealStatusEligible
		tracked.UpdatedAt = m.now()
		metrics.DealsEligible.Inc()

		dealCopy := tracked.Deal

		pending = append(pending, pendingAction{
			event: &entity.DealEvent{
				DealID:    dealCopy.ID,
				Status:    entity.DealStatusEligible,
				Timestamp: tracked.UpdatedAt,
				Detail:    "deal qualifies for auto-booking",
				Deal:      dealCopy,
			},
			submit: &dealCopy,
		})

	case tracked.Status == entity.DealStatusEligible && !eligible:
		tracked.Status = entity.DealStatusWatching
		tracked.UpdatedAt = m.now()

		if m.scheduler != nil {
			m.scheduler.Withdraw(tracked.Deal.ID)
		}

	case tracked.Status == entity.DealStatusBooking && !eligible:
		// Ревизия цены или профиля бьёт попытку в полёте.
		if m.scheduler != nil {
			m.scheduler.Withdraw(tracked.Deal.ID)
		}

	default:
	}

	m.persistLocked(ctx, *tracked)

	return pending
}

// evictLocked терминальный переход: ровно одно событие, выселение из карты и
// пометка в terminal-кэше. Вызывается только под m.mu.
func (m *Monitor) evictLocked(
	ctx context.Context,
	tracked *entity.TrackedDeal,
	status entity.DealStatus,
	detail string,
) pendingAction {
	tracked.Status = status
	tracked.UpdatedAt = m.now()

	delete(m.deals, tracked.Deal.ID)
	m.terminal.Set(tracked.Deal.ID, status, cache.DefaultExpiration)
	metrics.DealsTracked.Set(float64(len(m.deals)))

	m.persistLocked(ctx, *tracked)

	return pendingAction{
		event: &entity.DealEvent{
			DealID:    tracked.Deal.ID,
			Status:    status,
			Timestamp: tracked.UpdatedAt,
			Detail:    detail,
			Deal:      tracked.Deal,
		},
	}
}

func (m *Monitor) persistLocked(ctx context.Context, tracked entity.TrackedDeal) {
	if m.repo == nil {
		return
	}

	if err := m.repo.Save(ctx, tracked); err != nil {
		logger(ctx).Error("dealRepo.Save",
			slog.String(logx.FieldDealID, tracked.Deal.ID),
			logx.Error(err),
		)
	}
}

// dispatch исполняет отложенные действия вне блокировки: отправка событий
// блокирующая, чтобы терминальные уведомления не терялись.
func (m *Monitor) dispatch(ctx context.Context, pending []pendingAction) {
	for _, action := range pending {
		if action.event != nil {
			metrics.EventsEmitted.WithLabelValues(action.event.Status.String()).Inc()

			select {
			case m.events <- *action.event:
			case <-ctx.Done():
				return
			}
		}

		if action.submit == nil {
			continue
		}

		m.mu.Lock()
		scheduler := m.scheduler
		autoBooking := m.profile.AutoBookingEnabled
		m.mu.Unlock()

		if scheduler == nil || !autoBooking {
			continue
		}

		if _, err := scheduler.Submit(ctx, *action.submit); err != nil {
			logger(ctx).Error("scheduler.Submit",
				slog.String(logx.FieldDealID, action.submit.ID),
				logx.Error(err),
			)
		}
	}
}
