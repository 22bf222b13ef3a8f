package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/DenisKelolli/Golf-App/go/internal/dbconfig"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Store           string        `env:"STORE" envDefault:"postgres"`
	CoursesFile     string        `env:"COURSES_FILE" envDefault:"courses.yaml"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Live rounds with no players are evicted after IdleRoundTTL; 0 keeps them forever.
	IdleRoundTTL   time.Duration `env:"IDLE_ROUND_TTL" envDefault:"0s"`
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	WS struct {
		WriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
		ReadTimeout    time.Duration `env:"WS_READ_TIMEOUT" envDefault:"60s"`
		PingInterval   time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
		MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"4096"`
	}

	NATS struct {
		// Empty disables the domain event bus.
		URL           string `env:"NATS_URL"`
		Stream        string `env:"NATS_STREAM" envDefault:"GOLF_EVENTS"`
		SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"golf.events"`
	}

	DB dbconfig.Config
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case storePostgres, storeMemory:
	default:
		return fmt.Errorf("invalid STORE %q: want %s or %s", c.Store, storePostgres, storeMemory)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	if c.WS.PingInterval >= c.WS.ReadTimeout {
		return fmt.Errorf("WS_PING_INTERVAL (%s) must be shorter than WS_READ_TIMEOUT (%s)", c.WS.PingInterval, c.WS.ReadTimeout)
	}
	if c.IdleRoundTTL < 0 {
		return fmt.Errorf("IDLE_ROUND_TTL must not be negative")
	}
	return nil
}
