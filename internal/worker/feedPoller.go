package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/pkg/logx"
)

// DealSource источник сделок: HTTP-агрегатор или фикстурный фид.
type DealSource interface {
	FetchDeals(ctx context.Context) ([]entity.Deal, error)
}

// DealIngestor приёмник сделок, обычно монитор.
type DealIngestor interface {
	Ingest(ctx context.Context, deal entity.Deal) error
}

// FeedPoller циклически опрашивает источник сделок и скармливает результат
// монитору. Интервал между запросами фиксированный: агрегаторы режут по
// рейт-лимиту.
type FeedPoller struct {
	source   DealSource
	ingestor DealIngestor

	pollInterval time.Duration
	lastRequest  time.Time

	// Control fields
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

func NewFeedPoller(source DealSource, ingestor DealIngestor) *FeedPoller {
	return &FeedPoller{
		source:       source,
		ingestor:     ingestor,
		pollInterval: 30 * time.Second,
	}
}

func (w *FeedPoller) WithPollInterval(interval time.Duration) *FeedPoller {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

func (w *FeedPoller) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("feed poller is already running")
	}

	pollCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.isRunning = false
			w.cancelFunc = nil
			w.mu.Unlock()
		}()

		if err := w.Run(pollCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger(pollCtx).Error("feed poller stopped", logx.Error(err))
		}
	}()

	return nil
}

func (w *FeedPoller) Stop() {
	w.mu.Lock()

	if !w.isRunning {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// IsRunning возвращает текущий статус
func (w *FeedPoller) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *FeedPoller) Run(ctx context.Context) error {
	logger(ctx).Info("🚀 feed poller started", slog.Duration("poll-interval", w.pollInterval))

	for {
		select {
		case <-ctx.Done():
			logger(ctx).Info("🛑 feed poller stopped")
			return ctx.Err()
		default:
			if err := w.waitForNextSlot(ctx); err != nil {
				return err
			}

			w.pollOnce(ctx)
		}
	}
}

func (w *FeedPoller) waitForNextSlot(ctx context.Context) error {
	if w.lastRequest.IsZero() {
		w.lastRequest = time.Now()
		return nil
	}

	elapsed := time.Since(w.lastRequest)
	if elapsed >= w.pollInterval {
		w.lastRequest = time.Now()
		return nil
	}

	wait := w.pollInterval - elapsed

	select {
	case <-time.After(wait):
		w.lastRequest = time.Now()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *FeedPoller) pollOnce(ctx context.Context) {
	deals, err := w.source.FetchDeals(ctx)
	if err != nil {
		logger(ctx).Error("feed fetch failed", logx.Error(err))
		return
	}

	var accepted int

	for _, deal := range deals {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.ingestor.Ingest(ctx, deal); err != nil {
			// Битые сделки из фида не валят цикл опроса.
			logger(ctx).Warn("deal rejected",
				slog.String(logx.FieldDealID, deal.ID),
				logx.Error(err),
			)
			continue
		}

		accepted++
	}

	if accepted > 0 {
		logger(ctx).Info("poll cycle completed", slog.Int("deals_accepted", accepted))
	}
}
