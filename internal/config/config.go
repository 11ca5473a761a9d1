package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store backends for the durable client slots (token, theme)
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// DefaultAPIURL is the backend base path the web client was built against
const DefaultAPIURL = "https://backend-iao4.onrender.com/api"

// Config holds application configuration
type Config struct {
	APIURL                string
	APITimeoutSeconds     int
	APIRateLimit          string
	Store                 string
	StateDir              string
	RedisURL              string
	SQLitePath            string
	DebugMode             bool
	OTELEnabled           bool
	OTELEndpoint          string
	SandboxPort           string
	SandboxSigningKey     string
	SandboxAllowedOrigins []string
	SandboxLoginRate      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	stateDir := getEnv("EXPENSE_STATE_DIR", defaultStateDir())

	cfg := &Config{
		APIURL:                strings.TrimRight(getEnv("EXPENSE_API_URL", DefaultAPIURL), "/"),
		APITimeoutSeconds:     getEnvInt("API_TIMEOUT_SECONDS", 30),
		APIRateLimit:          getEnv("API_RATE_LIMIT", "20-S"),
		Store:                 strings.ToLower(getEnv("EXPENSE_STORE", StoreFile)),
		StateDir:              stateDir,
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SQLitePath:            getEnv("EXPENSE_SQLITE_PATH", filepath.Join(stateDir, "state.db")),
		DebugMode:             getEnvBool("DEBUG_MODE", false),
		OTELEnabled:           getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SandboxPort:           getEnv("SANDBOX_PORT", "8080"),
		SandboxSigningKey:     getEnv("SANDBOX_SIGNING_KEY", ""),
		SandboxAllowedOrigins: getEnvList("SANDBOX_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		SandboxLoginRate:      getEnv("SANDBOX_LOGIN_RATE", "10-M"),
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("EXPENSE_API_URL must not be empty")
	}

	switch cfg.Store {
	case StoreFile, StoreRedis, StoreSQLite, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid EXPENSE_STORE: %s (must be 'file', 'redis', 'sqlite', or 'memory')", cfg.Store)
	}

	if cfg.APITimeoutSeconds <= 0 {
		return nil, fmt.Errorf("API_TIMEOUT_SECONDS must be positive, got %d", cfg.APITimeoutSeconds)
	}

	return cfg, nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "expensectl")
	}
	return ".expensectl"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvList reads a comma-separated list, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
