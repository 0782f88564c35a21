package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	HTTPAddr     string
	BotToken     string
	SuperAdminID string
	WebAppURL    string

	RedisAddr string
	RedisPass string

	// RequireInitData makes signed launch data mandatory on the HTTP
	// order path. Source variants disagreed on this; it is an explicit
	// policy here.
	RequireInitData bool

	// AllowTestInitData accepts the "mock_hash_for_testing" sentinel
	// instead of a real signature. Never enable in production.
	AllowTestInitData bool

	SendTimeout time.Duration

	RateLimit  int
	RateWindow time.Duration
	RateBlock  time.Duration
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		BotToken:     getEnv("BOT_TOKEN", os.Getenv("TELEGRAM_BOT_TOKEN")),
		SuperAdminID: getEnv("SUPER_ADMIN_ID", ""),
		WebAppURL:    getEnv("WEBAPP_URL", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisPass: getEnv("REDIS_PASS", ""),

		RequireInitData:   getEnvAsBool("REQUIRE_INIT_DATA", false),
		AllowTestInitData: getEnvAsBool("ALLOW_TEST_INIT_DATA", false),

		SendTimeout: getEnvAsDuration("SEND_TIMEOUT", 10*time.Second),

		RateLimit:  getEnvAsInt("RATE_LIMIT", 100),
		RateWindow: getEnvAsDuration("RATE_WINDOW", time.Minute),
		RateBlock:  getEnvAsDuration("RATE_BLOCK", 10*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
