package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      App
	Postgres Postgres
	Redis    Redis
	Sources  Sources
	Pipeline Pipeline
	Bot      Bot
}

type App struct {
	Name                 string `env:"APP_NAME" envDefault:"card-market-pipeline"`
	Version              string `env:"APP_VERSION" envDefault:"dev"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPListenAddress    string `env:"HTTP_LISTEN_ADDRESS" envDefault:":8080"`
	MetricsListenAddress string `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
	ProbeListenAddress   string `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
	AutoMigrate          bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	LogFieldMaxLen       int    `env:"LOG_FIELD_MAX_LEN" envDefault:"4096"`
}

// Bot is the optional operator channel: alerts for held price changes go to
// ChatID, commands are accepted from AdminID only.
type Bot struct {
	Token   string `env:"BOT_TOKEN" json:"-"`
	ChatID  int64  `env:"BOT_CHAT_ID"`
	AdminID int64  `env:"BOT_ADMIN_ID"`
}

func (b Bot) Enabled() bool {
	return b.Token != "" && b.ChatID != 0
}

func (b Bot) CommandsEnabled() bool {
	return b.Token != "" && b.AdminID != 0
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := config.Pipeline.validate(); err != nil {
		return Config{}, fmt.Errorf("pipeline config: %w", err)
	}

	return config, nil
}
