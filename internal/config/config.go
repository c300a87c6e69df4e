// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTimezone is the exchange's local zone
const DefaultTimezone = "Asia/Seoul"

// Config holds application configuration
type Config struct {
	DataDir        string // Ledgers, plans, summary, caches and journal (always absolute)
	LogLevel       string
	LogPretty      bool
	Port           int
	Timezone       string
	StrategiesFile string // Empty means the embedded default
	MarketDataDays int
	KIS            KISConfig
	Telegram       TelegramConfig
	Backup         BackupConfig
}

// KISConfig holds market data gateway credentials and pacing
type KISConfig struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	MinInterval time.Duration
}

// Enabled reports whether credentials are present
func (c KISConfig) Enabled() bool {
	return c.AppKey != "" && c.AppSecret != ""
}

// TelegramConfig holds alert channel settings
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Events   []string // Empty allows every event
}

// Enabled reports whether the channel is configured
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// BackupConfig holds the S3-compatible ledger backup target
type BackupConfig struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Prefix        string
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PAPER_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", false),
		Port:           getEnvAsInt("PORT", 8001),
		Timezone:       getEnv("TIMEZONE", DefaultTimezone),
		StrategiesFile: getEnv("STRATEGIES_FILE", ""),
		MarketDataDays: getEnvAsInt("MARKET_DATA_DAYS", 30),
		KIS: KISConfig{
			BaseURL:     getEnv("KIS_BASE_URL", ""),
			AppKey:      getEnv("KIS_APP_KEY", ""),
			AppSecret:   getEnv("KIS_APP_SECRET", ""),
			MinInterval: time.Duration(getEnvAsInt("KIS_MIN_INTERVAL_MS", 300)) * time.Millisecond,
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			Events:   getEnvAsList("TELEGRAM_EVENTS"),
		},
		Backup: BackupConfig{
			Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:        getEnv("BACKUP_S3_REGION", ""),
			Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
			AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
			Prefix:        getEnv("BACKUP_S3_PREFIX", "papertrader"),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MarketDataDays <= 0 {
		return fmt.Errorf("MARKET_DATA_DAYS must be positive, got %d", c.MarketDataDays)
	}
	if c.KIS.MinInterval < 0 {
		return fmt.Errorf("KIS_MIN_INTERVAL_MS must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil && c.Timezone != DefaultTimezone {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone. Hosts without zoneinfo fall
// back to a fixed KST offset for the default zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// SummaryPath is the persisted comparison summary
func (c *Config) SummaryPath() string {
	return filepath.Join(c.DataDir, "summary.json")
}

// PlansDir holds per-strategy plan snapshots
func (c *Config) PlansDir() string {
	return filepath.Join(c.DataDir, "plans")
}

// MarketDataCachePath is the msgpack market data snapshot
func (c *Config) MarketDataCachePath() string {
	return filepath.Join(c.DataDir, "cache", "market_data.msgpack")
}

// JournalDBPath is the SQLite trade journal
func (c *Config) JournalDBPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// JournalMarkdownPath is the human-readable trade journal
func (c *Config) JournalMarkdownPath() string {
	return filepath.Join(c.DataDir, "TRADING_JOURNAL.md")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
