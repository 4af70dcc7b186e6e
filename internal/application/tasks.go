package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"trip_sentinel/internal/config"
	"trip_sentinel/internal/domain/service/monitor"
	"trip_sentinel/pkg/application/modules"
	"trip_sentinel/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	taskLedgerRefresh = "ledger:refresh"
	taskDealsSweep    = "deals:sweep"

	// Внешний финансовый сервис публикует актуальный баланс в этот ключ.
	balanceKey = "sentinel:balance"
)

// runTasks поднимает asynq поверх того же Redis: планировщик кладёт
// периодические задачи в очередь, воркер их исполняет. В отличие от
// внутрипроцессных тикеров, расписание переживает рестарты процесса.
func runTasks(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.Config,
	mon *monitor.Monitor,
	redisClient *redis.Client,
) {
	redisConn := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DatabaseNumber,
	}

	scheduler := asynq.NewScheduler(redisConn, &asynq.SchedulerOpts{})

	g.Go(func() error {
		entries := map[string]time.Duration{
			taskLedgerRefresh: cfg.Engine.LedgerRefreshInterval,
			taskDealsSweep:    cfg.Engine.TaskSweepInterval,
		}

		for task, interval := range entries {
			if _, err := scheduler.Register(
				fmt.Sprintf("@every %s", interval),
				asynq.NewTask(task, nil),
			); err != nil {
				return fmt.Errorf("scheduler.Register %s: %w", task, err)
			}
		}

		go func() {
			<-ctx.Done()
			scheduler.Shutdown()
		}()

		if err := scheduler.Run(); err != nil {
			return fmt.Errorf("asynqScheduler.Run: %w", err)
		}

		return nil
	})

	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
	}.Run(ctx, g,
		modules.AsynqQueues{"default": 1},
		modules.AsynqHandler{
			Pattern: taskLedgerRefresh,
			Handle:  refreshLedger(mon, redisClient),
		},
		modules.AsynqHandler{
			Pattern: taskDealsSweep,
			Handle:  sweepDeals(mon),
		},
	)
}

// refreshLedger подтягивает баланс, опубликованный финансовым сервисом.
// Отсутствие ключа не ошибка: значит, внешнего источника баланса нет.
func refreshLedger(mon *monitor.Monitor, redisClient *redis.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		balance, err := redisClient.Get(ctx, balanceKey).Int64()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("redis.Get %s: %w", balanceKey, err)
		}

		if balance == mon.Profile().AvailableBalance {
			return nil
		}

		logger(ctx).Info("refreshing available balance", slog.Int64("balance", balance))

		if err := mon.SetAvailableBalance(ctx, balance); err != nil {
			return fmt.Errorf("monitor.SetAvailableBalance: %w", err)
		}

		return nil
	}
}

// sweepDeals страховочная чистка поверх внутрипроцессного свипера.
func sweepDeals(mon *monitor.Monitor) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		if swept := mon.SweepExpired(ctx, time.Now()); swept > 0 {
			logger(ctx).Info("expired deals swept by task", slog.Int("count", swept))
		}

		return nil
	}
}
