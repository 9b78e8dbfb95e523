package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Built once in main and passed
// down; individual components never read the environment themselves.
type Config struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	JWTSigningKey string

	// RequestTimeout bounds each API request end to end.
	RequestTimeout time.Duration

	// Read-cache TTLs, differentiated by volatility.
	DetailCacheTTL  time.Duration
	ListCacheTTL    time.Duration
	SummaryCacheTTL time.Duration

	// Soft-deleted assets become eligible for physical deletion after this
	// window.
	DeleteRetention time.Duration
	// PurgeInterval is how often the background purge ticker fires.
	PurgeInterval time.Duration
}

// RedisConfig captures cache backend tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("ASSETTRACK_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RequestTimeout:  envDuration("REQUEST_TIMEOUT", 30*time.Second),
		DetailCacheTTL:  envDuration("CACHE_DETAIL_TTL", 10*time.Second),
		ListCacheTTL:    envDuration("CACHE_LIST_TTL", 10*time.Second),
		SummaryCacheTTL: envDuration("CACHE_SUMMARY_TTL", 30*time.Second),
		DeleteRetention: envDuration("DELETE_RETENTION", 30*24*time.Hour),
		PurgeInterval:   envDuration("PURGE_INTERVAL", time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
