package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Store         string `validate:"oneof=postgres memory"`
	DatabaseURL   string `validate:"required_if=Store postgres"`
	BotToken      string // пусто — бот не запускается
	Location      *time.Location
	HTTPAddr      string        `validate:"required"`
	LogLevel      string        `validate:"oneof=debug info warn error"`
	Env           string        `validate:"oneof=dev prod"`
	SentryDSN     string        `validate:"omitempty,url"`
	Release       string
	GaugeInterval time.Duration `validate:"gte=0"`
}

var validate = validator.New()

// Load — конфиг из окружения (.env подхватывается в main).
func Load() (*Config, error) {
	tz := getenv("TZ", "Europe/Rome")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	gauge, err := time.ParseDuration(getenv("GAUGE_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("GAUGE_INTERVAL: %w", err)
	}

	cfg := &Config{
		Store:         strings.ToLower(getenv("STORE", "postgres")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		Location:      loc,
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		Env:           strings.ToLower(getenv("ENV", "dev")),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Release:       getenv("RELEASE", "dev"),
		GaugeInterval: gauge,
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
