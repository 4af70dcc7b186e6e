package config

type Bot struct {
	Enabled bool   `env:"BOT_ENABLED" envDefault:"false"`
	Token   string `env:"BOT_TOKEN" json:"-"`
	ChatID  int64  `env:"BOT_CHAT_ID"`
}
