package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the catalog service.
type Config struct {
	DB      DBConfig
	Redis   RedisConfig
	Catalog CatalogConfig
	Session SessionConfig
	Port    string

	RateLimitMax           int
	RateLimitWindowSeconds int
}

// DBConfig holds PostgreSQL configuration. An empty Host disables the
// database-backed catalog source; the service then serves the built-in
// generator.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SSLRootCert string
}

// Enabled reports whether a Postgres catalog source is configured.
func (d DBConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CatalogConfig controls the catalog source and its fetch loader.
type CatalogConfig struct {
	Size            int
	StaleTime       time.Duration
	CacheTime       time.Duration
	RefetchInterval time.Duration
}

// SessionConfig controls per-session behavior.
type SessionConfig struct {
	TTL             time.Duration
	NotificationTTL time.Duration
	SearchDebounce  time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	catalogSize, _ := strconv.Atoi(getEnv("CATALOG_SIZE", "10000"))
	rateLimitMax, _ := strconv.Atoi(getEnv("RATE_LIMIT_MAX", "100"))
	rateLimitWindow, _ := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", ""),
			Port:        dbPort,
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "streamflix"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Catalog: CatalogConfig{
			Size:            catalogSize,
			StaleTime:       getDuration("CATALOG_STALE_TIME", 10*time.Minute),
			CacheTime:       getDuration("CATALOG_CACHE_TIME", 10*time.Minute),
			RefetchInterval: getDuration("CATALOG_REFETCH_INTERVAL", 5*time.Minute),
		},
		Session: SessionConfig{
			TTL:             getDuration("SESSION_TTL", 30*time.Minute),
			NotificationTTL: getDuration("NOTIFICATION_TTL", 3*time.Second),
			SearchDebounce:  getDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		},
		Port:                   getEnv("SERVER_PORT", "8080"),
		RateLimitMax:           rateLimitMax,
		RateLimitWindowSeconds: rateLimitWindow,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
