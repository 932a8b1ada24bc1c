// Package config loads service configuration from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Node      NodeConfig
	Vault     VaultConfig
	Session   SessionConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Responder ResponderConfig
	WebDir    string
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NodeConfig points at the ledger node the wallet talks to. HRP is the
// bech32 human-readable prefix of the target network ("smr" for Shimmer).
type NodeConfig struct {
	URL     string
	HRP     string
	Timeout time.Duration
}

// VaultConfig controls where per-account secret vaults live on disk.
type VaultConfig struct {
	Dir string
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Enabled  bool
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

type ResponderConfig struct {
	PollInterval time.Duration
	Precision    int
}

func Load() *Config {
	redisURL := getEnv("REDIS_URL", "")

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "5000"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Node: NodeConfig{
			URL:     getEnv("NODE_URL", "https://api.shimmer.network"),
			HRP:     getEnv("NODE_HRP", "smr"),
			Timeout: getDurationEnv("NODE_TIMEOUT", 30*time.Second),
		},
		Vault: VaultConfig{
			Dir: getEnv("VAULT_DIR", defaultVaultDir()),
		},
		Session: SessionConfig{
			TTL:           getDurationEnv("SESSION_TTL", 12*time.Hour),
			SweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(redisURL),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			// REDIS_ENABLED overrides the presence-of-URL default.
			Enabled: getBoolEnv("REDIS_ENABLED", redisURL != ""),
		},
		RateLimit: RateLimitConfig{
			Limit:  getIntEnv("RATE_LIMIT", 120),
			Window: getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},
		Responder: ResponderConfig{
			PollInterval: getDurationEnv("RESPONDER_POLL_INTERVAL", 5*time.Second),
			Precision:    getIntEnv("RESPONDER_PRECISION", 8),
		},
		WebDir: getEnv("WEB_DIR", "web"),
	}
}

// defaultVaultDir mirrors the desktop wallet convention of keeping vaults
// under the user's Documents folder.
func defaultVaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "Stronghold")
	}
	return filepath.Join(home, "Documents", "Stronghold")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
