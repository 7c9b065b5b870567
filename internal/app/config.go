package app

import (
	"os"
	"strconv"
	"time"

	"github.com/photostream/backend/internal/cache"
	"github.com/photostream/backend/pkg/tokenx"
)

type Config struct {
	JWTSecret    string // Required: HMAC secret for token signing
	JWTAlgorithm string // Optional: HMAC variant (HS256, HS384, HS512) (default: HS256)

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 30m)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 168h)
	EmailTokenTTL   time.Duration // Optional: confirmation token lifetime (default: 168h)
	CacheTTL        time.Duration // Optional: session cache entry lifetime (default: 900s)

	DatabaseFile string // Optional: path to SQLite database file (default: ./photostream.db)
	RedisURL     string // Optional: session cache address (default: redis://localhost:6379/0)

	AdminEmail    string // Optional: seeded admin credentials, required on first start
	AdminPassword string
	AdminFullName string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTAlgorithm: getEnvOrDefault("JWT_ALGORITHM", "HS256"),

		AccessTokenTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_TTL", tokenx.DefaultAccessTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("REFRESH_TOKEN_TTL", tokenx.DefaultRefreshTTL),
		EmailTokenTTL:   getEnvDurationOrDefault("EMAIL_TOKEN_TTL", tokenx.DefaultEmailTTL),
		CacheTTL:        getEnvDurationOrDefault("CACHE_TTL", cache.DefaultUserTTL),

		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "photostream.db"),
		RedisURL:     getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminFullName: getEnvOrDefault("ADMIN_FULLNAME", "Administrator"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept Go duration syntax ("30m", "168h", "900s").
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
