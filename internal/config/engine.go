package config

import "time"

// Engine настройки движка. Денежные значения в центах.
type Engine struct {
	MaxTripBudget       int64         `env:"ENGINE_MAX_TRIP_BUDGET" envDefault:"300000"`
	PriceAlertThreshold int           `env:"ENGINE_PRICE_ALERT_THRESHOLD" envDefault:"80"`
	AutoBookingEnabled  bool          `env:"ENGINE_AUTO_BOOKING_ENABLED" envDefault:"false"`
	AvailableBalance    int64         `env:"ENGINE_AVAILABLE_BALANCE" envDefault:"500000"`
	SweepInterval       time.Duration `env:"ENGINE_SWEEP_INTERVAL" envDefault:"5s"`
	ProviderTimeout     time.Duration `env:"ENGINE_PROVIDER_TIMEOUT" envDefault:"30s"`
	MaxBookingAttempts  int           `env:"ENGINE_MAX_BOOKING_ATTEMPTS" envDefault:"3"`
	EventBufferSize     int           `env:"ENGINE_EVENT_BUFFER_SIZE" envDefault:"256"`

	// Интервалы фоновых задач asynq; действуют только при включённом Redis.
	LedgerRefreshInterval time.Duration `env:"ENGINE_LEDGER_REFRESH_INTERVAL" envDefault:"5m"`
	TaskSweepInterval     time.Duration `env:"ENGINE_TASK_SWEEP_INTERVAL" envDefault:"1m"`
}
