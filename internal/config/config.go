// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/innov8academy/newsletter-auto/internal/gemini"
	"github.com/innov8academy/newsletter-auto/internal/llm"
	"github.com/innov8academy/newsletter-auto/internal/storage"
)

type Config struct {
	// LLM settings
	LLMProvider    string // "openrouter" or "gemini"
	LLMAPIKey      string // default key when a request carries none
	LLMModel       string
	LLMCallDelay   time.Duration
	MaxLLMRequests int // per curation run (0 = unlimited)

	// Feed settings
	FeedsConfigPath string
	NewsMaxAgeDays  int

	// Curation settings
	PerSourceQuota int
	MaxCandidates  int
	MinScore       int

	// HTTP settings
	RequestTimeout time.Duration
	ScrapeTimeout  time.Duration
	HTTPAddr       string

	// Cache and storage settings
	CacheTTLHours int
	StorageDriver string
	StoragePath   string

	// Telegram settings
	TelegramToken  string
	TelegramChatID string
	DigestSize     int

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		LLMProvider:     llm.ProviderOpenRouter,
		LLMCallDelay:    300 * time.Millisecond,
		FeedsConfigPath: "configs/feeds.yaml",
		NewsMaxAgeDays:  7,
		PerSourceQuota:  2,
		MaxCandidates:   20,
		MinScore:        6,
		RequestTimeout:  30 * time.Second,
		ScrapeTimeout:   15 * time.Second,
		HTTPAddr:        ":8080",
		CacheTTLHours:   6,
		StorageDriver:   storage.DriverFile,
		StoragePath:     "curated_reports.json",
		DigestSize:      5,
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = strings.ToLower(strings.TrimSpace(v))
	}
	switch cfg.LLMProvider {
	case llm.ProviderGemini:
		cfg.LLMAPIKey = os.Getenv("GEMINI_API_KEY")
		cfg.LLMModel = getEnvOrDefault("LLM_MODEL", gemini.DefaultModel)
	default:
		cfg.LLMAPIKey = os.Getenv("OPENROUTER_API_KEY")
		cfg.LLMModel = getEnvOrDefault("LLM_MODEL", llm.DefaultOpenRouterModel)
	}

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.NewsMaxAgeDays = getEnvIntOrDefault("NEWS_MAX_AGE_DAYS", cfg.NewsMaxAgeDays)
	cfg.PerSourceQuota = getEnvIntOrDefault("PER_SOURCE_QUOTA", cfg.PerSourceQuota)
	cfg.MaxCandidates = getEnvIntOrDefault("MAX_CANDIDATES", cfg.MaxCandidates)
	cfg.MinScore = getEnvIntOrDefault("MIN_SCORE", cfg.MinScore)
	cfg.MaxLLMRequests = getEnvIntOrDefault("MAX_LLM_REQUESTS", cfg.MaxLLMRequests)
	cfg.CacheTTLHours = getEnvIntOrDefault("CACHE_TTL_HOURS", cfg.CacheTTLHours)
	cfg.DigestSize = getEnvIntOrDefault("DIGEST_SIZE", cfg.DigestSize)

	var err error
	if cfg.LLMCallDelay, err = getEnvDurationOrDefault("LLM_CALL_DELAY", cfg.LLMCallDelay); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.ScrapeTimeout, err = getEnvDurationOrDefault("SCRAPE_TIMEOUT", cfg.ScrapeTimeout); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = getEnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.StorageDriver = strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.StoragePath = getEnvOrDefault("STORAGE_PATH", cfg.StoragePath)

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("500ms") or plain
// milliseconds ("500").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

// TelegramEnabled reports whether digests can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

func (c *Config) Validate() error {
	if c.LLMProvider != llm.ProviderOpenRouter && c.LLMProvider != llm.ProviderGemini {
		return fmt.Errorf("LLM_PROVIDER must be '%s' or '%s'", llm.ProviderOpenRouter, llm.ProviderGemini)
	}
	switch c.StorageDriver {
	case storage.DriverFile, storage.DriverSQLite, storage.DriverNone:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be '%s', '%s' or '%s'", storage.DriverFile, storage.DriverSQLite, storage.DriverNone)
	}
	if c.StorageDriver != storage.DriverNone && c.StoragePath == "" {
		return fmt.Errorf("STORAGE_PATH is required for driver %s", c.StorageDriver)
	}
	if c.NewsMaxAgeDays < 0 {
		return fmt.Errorf("NEWS_MAX_AGE_DAYS must not be negative")
	}
	if c.PerSourceQuota < 1 {
		return fmt.Errorf("PER_SOURCE_QUOTA must be at least 1")
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("MAX_CANDIDATES must be at least 1")
	}
	if c.MinScore < 1 || c.MinScore > 10 {
		return fmt.Errorf("MIN_SCORE must be between 1 and 10")
	}
	if c.MaxLLMRequests < 0 {
		return fmt.Errorf("MAX_LLM_REQUESTS must not be negative")
	}
	if c.LLMCallDelay < 0 {
		return fmt.Errorf("LLM_CALL_DELAY must not be negative")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}
