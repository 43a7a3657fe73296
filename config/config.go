package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration, parsed from the environment
type Config struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":9000"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	ChallengeTTL    time.Duration `env:"CHALLENGE_TTL" envDefault:"15m"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"5m"`
	AccountPreamble string        `env:"ACCOUNT_PREAMBLE" envDefault:"I authorize account recovery on keyproof.\nChallenge: "`
}

// Load parses the configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ChallengeTTL <= 0 {
		return Config{}, fmt.Errorf("CHALLENGE_TTL must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive")
	}
	return cfg, nil
}
