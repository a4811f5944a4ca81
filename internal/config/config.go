package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Moderation ModerationConfig
	RateLimit  RateLimitConfig
	Worker     WorkerConfig
	LogLevel   slog.Level
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ModerationConfig struct {
	OpenAIKey string
	Model     string
	BaseURL   string        // empty means the public OpenAI API
	Timeout   time.Duration // per provider call
	CacheTTL  time.Duration // 0 disables the provider result cache
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type WorkerConfig struct {
	Concurrency int
	MetricsAddr string // listen address for the worker's /metrics
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	timeout, err := getEnvDuration("MODERATION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid MODERATION_TIMEOUT: %w", err)
	}

	cacheTTL, err := getEnvDuration("MODERATION_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid MODERATION_CACHE_TTL: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Moderation: ModerationConfig{
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("MODERATION_MODEL", "text-moderation-latest"),
			BaseURL:   getEnv("MODERATION_BASE_URL", ""),
			Timeout:   timeout,
			CacheTTL:  cacheTTL,
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Worker: WorkerConfig{
			Concurrency: concurrency,
			MetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9091"),
		},
		LogLevel: level,
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate rejects static configuration the services cannot start with.
// A missing provider key is not an error: moderation then runs on rules.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "SERVER_PORT out of range")
	}
	if c.Moderation.Timeout <= 0 {
		problems = append(problems, "MODERATION_TIMEOUT must be positive")
	}
	if c.Moderation.CacheTTL < 0 {
		problems = append(problems, "MODERATION_CACHE_TTL must not be negative")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		problems = append(problems, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		problems = append(problems, "WORKER_CONCURRENCY must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
