// Package config sources the process configuration from the environment,
// with an optional .env overlay for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string   `env:"ADDR" envDefault:":8080"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	DeckStart      float64  `env:"DECK_START" envDefault:"0.5"`
	DeckLimit      float64  `env:"DECK_LIMIT" envDefault:"26"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	DevLog         bool     `env:"DEV_LOG"`
}

// Load reads .env when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
