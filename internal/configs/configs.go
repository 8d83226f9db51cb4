/*
Package configs loads the server settings from environment variables.

Values are decoded with Netflix/go-env; a `.env` file in the working directory, when
present, is loaded first so local runs need no exported variables. LoadConfig applies
defaults and validates ranges.
*/
package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// DefaultGroupName is the name of the bootstrap group every user joins on login.
const DefaultGroupName = "默认群"

// AppConfig contains all configuration parameters required for the server to run.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT,default=development"`
	Port        int    `env:"PORT,default=8888"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Security Settings
	AllowedOriginsRaw string  `env:"ALLOWED_ORIGINS"`
	PasswordHashCost  int     `env:"PASSWORD_HASH_COST,default=10"`
	ConnectRate       float64 `env:"CONNECT_RATE,default=1"`
	ConnectBurst      int     `env:"CONNECT_BURST,default=10"`

	// Chat Settings
	DefaultGroupName string        `env:"DEFAULT_GROUP_NAME"`
	MaxContentBytes  int           `env:"MAX_CONTENT_BYTES,default=8192"`
	MaxFileBytes     int64         `env:"MAX_FILE_BYTES,default=16777216"`
	SendQueueSize    int           `env:"SEND_QUEUE_SIZE,default=256"`
	PingInterval     time.Duration `env:"PING_INTERVAL,default=0s"`

	// Database Settings; empty keeps accounts in memory.
	DatabaseDSN string `env:"DATABASE_URL"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// AllowedOrigins splits ALLOWED_ORIGINS into trimmed, non-empty origins.
func (c *AppConfig) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.AllowedOriginsRaw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// LoadConfig reads the configuration from the environment (and an optional .env file).
func LoadConfig() (*AppConfig, error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the allowed range (%d-%d)", c.Port, 1024, 65535)
	}

	if !c.IsDevelopment() && len(c.AllowedOrigins()) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS is required in %s environment", c.Environment)
	}

	if c.DefaultGroupName == "" {
		c.DefaultGroupName = DefaultGroupName
	}

	if c.PasswordHashCost < bcrypt.MinCost || c.PasswordHashCost > bcrypt.MaxCost {
		return fmt.Errorf("PASSWORD_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.MaxContentBytes <= 0 || c.MaxFileBytes <= 0 || c.SendQueueSize <= 0 {
		return errors.New("MAX_CONTENT_BYTES, MAX_FILE_BYTES and SEND_QUEUE_SIZE must be positive")
	}

	if c.ConnectRate <= 0 || c.ConnectBurst <= 0 {
		return errors.New("CONNECT_RATE and CONNECT_BURST must be positive")
	}

	if c.PingInterval < 0 {
		return errors.New("PING_INTERVAL cannot be negative")
	}

	return nil
}
