package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. Fine for local play, not
// for anything reachable from the internet.
const DefaultJWTSecret = "supersecretkey"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the API server configuration loaded from environment variables.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8082"`
	DatabaseDriver string        `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"./database.db"`
	PostgresDSN    string        `env:"POSTGRES_DSN"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"supersecretkey"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	MongoURI       string        `env:"MONGO_URI"`
	MongoDB        string        `env:"MONGO_DB" envDefault:"scoreboard"`
}

// FrontendConfig holds the static asset server configuration.
type FrontendConfig struct {
	Port           string `env:"FRONTEND_PORT" envDefault:"8081"`
	FrontendDir    string `env:"FRONTEND_DIR" envDefault:"./frontend"`
	GamesDir       string `env:"GAMES_DIR" envDefault:"./juegos"`
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"game-assets"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// Load reads the API configuration. A .env file in the working directory is
// applied first; real environment variables win over it.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrontend reads the static asset server configuration.
func LoadFrontend() (*FrontendConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var cfg FrontendConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// UsesDefaultSecret reports whether tokens are signed with DefaultJWTSecret.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func (c *Config) validate() error {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	return nil
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}
