package config

import (
	"os"
	"strconv"
	"time"

	"pupbodhi/dealbot/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Telegram configuration
	BotToken       string
	OperatorChatID int64

	// Deal site and exchange-rate endpoints
	SiteURL  string
	RatesURL string

	// JSON store paths
	SubscriptionsFile string
	WatchlistFile     string

	// Dispatcher configuration
	NotifyTime   string // HH:MM, UTC
	MentionDelay time.Duration

	// Scrape rate-limit guard
	ScrapeBlockTime time.Duration
	MemcacheAddr    string

	// Optional deal event export
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int64

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	operatorChatID, _ := strconv.ParseInt(getEnv("OPERATOR_CHAT_ID", "0"), 10, 64)
	mentionDelay, _ := strconv.Atoi(getEnv("MENTION_DELAY_SECONDS", "5"))
	blockTime, _ := strconv.Atoi(getEnv("SCRAPE_BLOCK_SECONDS", "300"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisMaxLen, _ := strconv.ParseInt(getEnv("REDIS_STREAM_MAX_LENGTH", "100"), 10, 64)

	return Config{
		BotToken:             os.Getenv("TOKEN"),
		OperatorChatID:       operatorChatID,
		SiteURL:              getEnv("SITE_URL", "https://libidex.com"),
		RatesURL:             getEnv("EXCHANGE_RATE_URL", "https://open.er-api.com/v6/latest"),
		SubscriptionsFile:    getEnv("SUBSCRIPTIONS_FILE", "database.json"),
		WatchlistFile:        getEnv("WATCHLIST_FILE", "watchlist.json"),
		NotifyTime:           getEnv("NOTIFY_TIME", "21:00"),
		MentionDelay:         time.Duration(mentionDelay) * time.Second,
		ScrapeBlockTime:      time.Duration(blockTime) * time.Second,
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "daily_deals"),
		RedisStreamMaxLength: redisMaxLen,
		Environment:          getEnv("DEALBOT_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.NewConfiguration("TOKEN is required", nil)
	}
	if _, err := time.Parse("15:04", c.NotifyTime); err != nil {
		return errors.NewConfiguration("NOTIFY_TIME must be HH:MM", err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
