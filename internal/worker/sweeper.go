package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ExpirySweeper чистит просроченные сделки. Монитор делает это лениво при
// переоценке, свипер даёт верхнюю границу на время жизни протухшей сделки.
type ExpirySweeper struct {
	monitor interface {
		SweepExpired(ctx context.Context, now time.Time) int
	}

	sweepInterval time.Duration

	// Control fields
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

func NewExpirySweeper(
	monitor interface {
		SweepExpired(ctx context.Context, now time.Time) int
	},
) *ExpirySweeper {
	return &ExpirySweeper{
		monitor:       monitor,
		sweepInterval: 5 * time.Second,
	}
}

func (w *ExpirySweeper) WithSweepInterval(interval time.Duration) *ExpirySweeper {
	if interval > 0 {
		w.sweepInterval = interval
	}
	return w
}

func (w *ExpirySweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("sweeper is already running")
	}

	sweepCtx, cancel := context.WithCancel(ctx)
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

		w.Run(sweepCtx)
	}()

	return nil
}

func (w *ExpirySweeper) Stop() {
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

func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if swept := w.monitor.SweepExpired(ctx, now); swept > 0 {
				logger(ctx).Info("expired deals swept", slog.Int("count", swept))
			}
		}
	}
}
