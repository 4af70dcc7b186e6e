package config

import "time"

// Provider внешний провайдер бронирования. Mode simulated подтверждает брони
// локально, без внешних вызовов.
type Provider struct {
	Mode           string        `env:"PROVIDER_MODE" envDefault:"simulated"` // simulated | http
	BaseURL        string        `env:"PROVIDER_BASE_URL"`
	APIKey         string        `env:"PROVIDER_API_KEY" json:"-"`
	RequestTimeout time.Duration `env:"PROVIDER_REQUEST_TIMEOUT" envDefault:"30s"`
	SimulatedDelay time.Duration `env:"PROVIDER_SIMULATED_DELAY" envDefault:"500ms"`
}
