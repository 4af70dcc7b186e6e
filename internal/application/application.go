// Package application собирает движок из конфигурации и держит его жизненный
// цикл: коннекторы, монитор с планировщиком, воркеры, HTTP API и фоновые
// задачи.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"trip_sentinel/internal/config"
	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/internal/domain/service/booking"
	"trip_sentinel/internal/domain/service/monitor"
	"trip_sentinel/internal/infrastructure/feed"
	"trip_sentinel/internal/infrastructure/notifier"
	"trip_sentinel/internal/infrastructure/persistence"
	"trip_sentinel/internal/infrastructure/provider"
	"trip_sentinel/internal/server"
	"trip_sentinel/internal/worker"
	"trip_sentinel/pkg/application/connectors"
	"trip_sentinel/pkg/application/modules"
	"trip_sentinel/pkg/logx"
	"trip_sentinel/pkg/middlewarex"
)

const logFieldMaxLen = 4096

func Run(ctx context.Context, log *slog.Logger) error {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// 2. Engine core
	profile := entity.BudgetProfile{
		MaxTripBudget:       cfg.Engine.MaxTripBudget,
		PriceAlertThreshold: cfg.Engine.PriceAlertThreshold,
		AutoBookingEnabled:  cfg.Engine.AutoBookingEnabled,
		AvailableBalance:    cfg.Engine.AvailableBalance,
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("engine profile: %w", err)
	}

	events := make(chan entity.DealEvent, cfg.Engine.EventBufferSize)
	ledger := booking.NewLedger(cfg.Engine.AvailableBalance)

	var (
		monitorOpts   []monitor.Option
		schedulerOpts = []booking.SchedulerOption{
			booking.WithProviderTimeout(cfg.Engine.ProviderTimeout),
			booking.WithMaxAttempts(cfg.Engine.MaxBookingAttempts),
		}
	)

	// 3. Database (опционально: журнал сделок и попыток)
	if cfg.Postgres.Enabled {
		pg := &connectors.Postgres{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}
		db := pg.Client(ctx)
		defer pg.Close(ctx)

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("db ping: %w", err)
		}
		log.Info("database connection OK")

		monitorOpts = append(monitorOpts,
			monitor.WithDealRepository(persistence.NewDealRepository(db)))
		schedulerOpts = append(schedulerOpts,
			booking.WithAttemptRepository(persistence.NewAttemptRepository(db)))
	}

	mon := monitor.New(profile, ledger, events, monitorOpts...)

	bookingProvider, err := buildProvider(cfg.Provider)
	if err != nil {
		return err
	}

	scheduler := booking.NewScheduler(ledger, bookingProvider, mon, schedulerOpts...)
	defer scheduler.Close()

	mon.BindScheduler(scheduler)

	// 4. Notification sinks
	var (
		sinks       []notifier.Sink
		redisClient *redis.Client
	)

	if cfg.Redis.Enabled {
		rd := &connectors.Redis{
			Address:            cfg.Redis.Address,
			Username:           cfg.Redis.Username,
			Password:           cfg.Redis.Password,
			DatabaseNumber:     cfg.Redis.DatabaseNumber,
			PoolSize:           cfg.Redis.PoolSize,
			MinIdleConnections: cfg.Redis.MinIdleConnections,
			MaxIdleConnections: cfg.Redis.MaxIdleConnections,
		}
		defer rd.Close(ctx)

		redisClient = rd.Client(ctx)
		sinks = append(sinks, notifier.NewRedisStream(redisClient, cfg.Redis.EventStream))
	}

	if cfg.Bot.Enabled {
		alertBot, err := notifier.NewTelegramBot(cfg.Bot.Token, cfg.Bot.ChatID)
		if err != nil {
			return fmt.Errorf("notifier bot: %w", err)
		}

		if err := alertBot.SendText(ctx, "🚀 Trip sentinel is starting"); err != nil {
			log.Error("❌ Bot test failed! Check Token and ChatID", logx.Error(err))
		}

		sinks = append(sinks, alertBot)
	}

	fanout := notifier.NewFanout(sinks...)

	g.Go(func() error {
		if err := fanout.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("fanout.Run: %w", err)
		}

		return nil
	})

	// 5. Workers
	dealSource, err := buildSource(cfg.Feed)
	if err != nil {
		return err
	}

	poller := worker.NewFeedPoller(dealSource, mon).
		WithPollInterval(cfg.Feed.PollInterval)
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("poller start: %w", err)
	}
	defer poller.Stop()

	sweeper := worker.NewExpirySweeper(mon).
		WithSweepInterval(cfg.Engine.SweepInterval)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("sweeper start: %w", err)
	}
	defer sweeper.Stop()

	// 6. Background tasks (asynq поверх того же Redis)
	if cfg.Redis.Enabled {
		runTasks(ctx, g, cfg, mon, redisClient)
	}

	// 7. HTTP API + служебные серверы
	router := chi.NewRouter()

	masker := logx.NewSensitiveDataMasker()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Recovery,
		middlewarex.Logger,
		middlewarex.RequestLogging(masker, logFieldMaxLen),
		middlewarex.ResponseLogging(masker, logFieldMaxLen),
	)

	server.NewServer(
		server.NewBudgetServer(mon),
		server.NewDealServer(mon, scheduler),
	).RegisterRoutes(router)

	modules.HTTPServer{ShutdownTimeout: cfg.Server.ShutdownTimeout}.Run(ctx, g, &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: router,
	})

	modules.ProbeServer{
		Name:          cfg.Server.Name,
		Version:       cfg.Server.Version,
		ListenAddress: cfg.Server.ProbeListenAddress,
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.Server.MetricListenAddress,
	}.Run(ctx, g)

	log.Info("🚀 trip sentinel started",
		slog.String("feed-mode", cfg.Feed.Mode),
		slog.String("provider-mode", cfg.Provider.Mode),
		slog.Bool("auto-booking", cfg.Engine.AutoBookingEnabled),
	)

	return g.Wait()
}

func buildProvider(cfg config.Provider) (booking.Provider, error) {
	switch cfg.Mode {
	case "http":
		if cfg.BaseURL == "" {
			return nil, errors.New("PROVIDER_BASE_URL is required in http mode")
		}

		return provider.NewHTTPProvider(cfg.BaseURL, cfg.APIKey, cfg.RequestTimeout), nil
	case "simulated":
		return provider.NewSimulated(cfg.SimulatedDelay), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", cfg.Mode)
	}
}

func buildSource(cfg config.Feed) (worker.DealSource, error) {
	switch cfg.Mode {
	case "http":
		if cfg.BaseURL == "" || cfg.TokenURL == "" {
			return nil, errors.New("FEED_BASE_URL and FEED_TOKEN_URL are required in http mode")
		}

		authenticator := feed.NewAuthenticator(
			&http.Client{Timeout: cfg.RequestTimeout},
			cfg.TokenURL,
			cfg.ClientID,
			cfg.ClientSecret,
		)

		return feed.NewHTTPSource(cfg.BaseURL, authenticator, cfg.RequestTimeout), nil
	case "fixture":
		return feed.NewFixtureSource(), nil
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Mode)
	}
}
