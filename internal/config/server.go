package config

import "time"

type Server struct {
	ListenAddress       string        `env:"SERVER_LISTEN_ADDRESS" envDefault:":8080"`
	ProbeListenAddress  string        `env:"SERVER_PROBE_LISTEN_ADDRESS" envDefault:":8091"`
	MetricListenAddress string        `env:"SERVER_METRIC_LISTEN_ADDRESS" envDefault:":9090"`
	ShutdownTimeout     time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Name                string        `env:"SERVER_NAME" envDefault:"trip-sentinel"`
	Version             string        `env:"SERVER_VERSION" envDefault:"dev"`
}
