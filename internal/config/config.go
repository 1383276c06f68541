package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	TLSCert         string        `env:"TLS_CERT"`
	TLSKey          string        `env:"TLS_KEY"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	TokenKey        string        `env:"TOKEN_KEY"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment  bool          `env:"LOG_DEVELOPMENT" envDefault:"false"`
	RateLimit       float64       `env:"RATE_LIMIT" envDefault:"5"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"10"`
	MaxSessions     int           `env:"MAX_SESSIONS" envDefault:"256"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"8388608"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// TLS reports whether both certificate files are configured.
func (c Config) TLS() bool { return c.TLSCert != "" && c.TLSKey != "" }

// Accounts reports whether the user and dataset library surface is enabled.
func (c Config) Accounts() bool { return c.DatabaseURL != "" }

// Load reads an optional .env file, then the environment. Variables that
// are already set win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Accounts() && c.TokenKey == "" {
		return errors.New("TOKEN_KEY environment variable is not set")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("RATE_LIMIT and RATE_BURST must be positive")
	}
	return nil
}
