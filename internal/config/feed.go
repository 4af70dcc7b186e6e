package config

import "time"

// Feed источник сделок. Mode fixture не требует ключей и ходит только в память.
type Feed struct {
	Mode           string        `env:"FEED_MODE" envDefault:"fixture"` // fixture | http
	BaseURL        string        `env:"FEED_BASE_URL"`
	TokenURL       string        `env:"FEED_TOKEN_URL"`
	ClientID       string        `env:"FEED_CLIENT_ID"`
	ClientSecret   string        `env:"FEED_CLIENT_SECRET" json:"-"`
	PollInterval   time.Duration `env:"FEED_POLL_INTERVAL" envDefault:"30s"`
	RequestTimeout time.Duration `env:"FEED_REQUEST_TIMEOUT" envDefault:"15s"`
}
