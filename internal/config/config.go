package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envProduction = "production"
	devJWTSecret  = "dev-secret"
)

// Config aggregates runtime configuration for the service. It is built once
// at startup and never modified.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	GitHub   GitHubConfig
	Seed     SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSOrigins           string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN           string
	MaxConns      int32
	MinConns      int32
	RunMigrations bool
	MigrationsDir string
	ConnMaxIdle   time.Duration
	ConnMaxLife   time.Duration
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// GitHubConfig configures the GitHub proxy.
type GitHubConfig struct {
	APIURL         string
	Token          string
	CacheTTL       time.Duration
	CacheSize      int
	TimeoutSeconds int
}

// SeedConfig controls the accounts created in an empty database.
type SeedConfig struct {
	Enabled       bool
	AdminEmail    string
	AdminPassword string
	UserEmail     string
	UserPassword  string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("AUTH_TOKEN_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("GITHUB_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid GITHUB_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "gatekeeper"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnv("CORS_ORIGINS", "*"),
		},
		Postgres: PostgresConfig{
			DSN:           os.Getenv("POSTGRES_DSN"),
			MaxConns:      int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:      int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations: getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir: getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdle:   getEnvAsDuration("POSTGRES_CONN_MAX_IDLE", 30*time.Second),
			ConnMaxLife:   getEnvAsDuration("POSTGRES_CONN_MAX_LIFE", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:        os.Getenv("REDIS_ADDR"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", devJWTSecret),
			TokenTTL:   tokenTTL,
			BcryptCost: getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		GitHub: GitHubConfig{
			APIURL:         strings.TrimRight(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
			Token:          os.Getenv("GITHUB_TOKEN"),
			CacheTTL:       cacheTTL,
			CacheSize:      getEnvAsInt("GITHUB_CACHE_SIZE", 512),
			TimeoutSeconds: getEnvAsInt("GITHUB_TIMEOUT_SECONDS", 10),
		},
		Seed: SeedConfig{
			Enabled:       getEnvAsBool("SEED_USERS", true),
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", "admin123"),
			UserEmail:     getEnv("SEED_USER_EMAIL", "user@example.com"),
			UserPassword:  getEnv("SEED_USER_PASSWORD", "user123"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive")
	}
	if c.App.IsProduction() && c.Auth.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with production settings.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, envProduction)
}

// ExposeErrorDetails reports whether internal error messages may reach clients.
func (a AppConfig) ExposeErrorDetails() bool {
	return !a.IsProduction()
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the upstream request timeout.
func (g GitHubConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
