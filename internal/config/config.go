package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	// Auth
	JWKSURL   string // Preferred: asymmetric keys fetched from a JWKS endpoint
	JWTSecret string // Fallback: HS256 shared secret
	DevUserID string // dev only: skip token verification and act as this user
	// Cache
	CacheBackend string // memory | nats | none
	CacheTTL     time.Duration
	CacheSize    int
	NATSURL      string
	NATSBucket   string
	// Project hierarchy
	LockTimeout       time.Duration
	MaxHierarchyDepth int
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		JWKSURL:     getEnv("JWKS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		DevUserID:   getEnv("DEV_USER_ID", ""),
		// Cache
		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:     getEnvDuration("CACHE_TTL", DefaultCacheTTL),
		CacheSize:    getEnvInt("CACHE_SIZE", DefaultCacheSize),
		NATSURL:      getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSBucket:   getEnv("NATS_BUCKET", "pkm_cache"),
		// Hierarchy
		LockTimeout:       getEnvDuration("LOCK_TIMEOUT", DefaultLockTimeout),
		MaxHierarchyDepth: getEnvInt("MAX_HIERARCHY_DEPTH", DefaultMaxHierarchyDepth),
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go durations ("10m") or plain seconds ("600").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
