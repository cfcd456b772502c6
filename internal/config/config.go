// Package config loads the pipeline's configuration from environment
// variables, with .env file support for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment-sourced pipeline setting.
type Config struct {
	NewsAPIKeys   []string // NEWS_API_KEY, NEWS_API_KEY_2, NEWS_API_KEY_3
	GeminiAPIKeys []string // GEMINI_API_KEY, GEMINI_API_KEY_2, GEMINI_API_KEY_3
	FinnhubAPIKey string   // optional; absence disables live market-data fetch
	MarketSymbol  string   // equity symbol the validation subsystem backtests against
	NewsFeedDir   string   // base directory for persisted state
	ResendAPIKey  string   // optional; absence disables the email-digest collaborator
	LogLevel      string
	DevMode       bool // enables verbose logs and disables the cron scheduler
	SchedulerCron string
	StorePath     string
	R2AccessKey   string // optional; absence disables off-box backup upload
	R2SecretKey   string
	R2Bucket      string
	R2Endpoint    string
}

// Load reads configuration from the environment (loading .env first if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("NEWS_FEED_DIR", "")
	if dataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		dataDir = wd
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve feed dir: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create feed dir: %w", err)
	}

	cfg := &Config{
		NewsAPIKeys:   keyPool("NEWS_API_KEY", "NEWS_API_KEY_2", "NEWS_API_KEY_3"),
		GeminiAPIKeys: keyPool("GEMINI_API_KEY", "GEMINI_API_KEY_2", "GEMINI_API_KEY_3"),
		FinnhubAPIKey: getEnv("FINNHUB_API_KEY", ""),
		MarketSymbol:  getEnv("MARKET_VALIDATION_SYMBOL", "SPY"),
		NewsFeedDir:   absDataDir,
		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		SchedulerCron: getEnv("PIPELINE_CRON", "0 */6 * * *"),
		StorePath:     filepath.Join(absDataDir, "market_intelligence.db"),
		R2AccessKey:   getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:      getEnv("R2_BUCKET", ""),
		R2Endpoint:    getEnv("R2_ENDPOINT", ""),
	}

	return cfg, nil
}

// keyPool collects non-empty environment variables, in order, into a
// rotation pool. An empty pool is valid: the caller degrades gracefully
// (NewsAPI adapter reports unavailable; synthesis falls back locally).
func keyPool(envVars ...string) []string {
	var pool []string
	for _, v := range envVars {
		if val := getEnv(v, ""); val != "" {
			pool = append(pool, val)
		}
	}
	return pool
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
