package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// TelegramConfig holds the delivery channel settings
type TelegramConfig struct {
	BotToken         string `mapstructure:"bot_token"`
	ChatID           int64  `mapstructure:"chat_id"`
	MaxMessageLength int    `mapstructure:"max_message_length"`
}

// CrawlerConfig holds the periodic crawler settings. These are policy
// constants, not invariants: tune them per deployment.
type CrawlerConfig struct {
	Schedule            string        `mapstructure:"schedule"` // cron expression
	Timezone            string        `mapstructure:"timezone"`
	MaxArticlesPerCycle int           `mapstructure:"max_articles_per_cycle"` // content backfill ceiling
	BatchSize           int           `mapstructure:"batch_size"`             // articles per extraction batch
	RequestDelay        time.Duration `mapstructure:"request_delay"`          // politeness delay between extractions
}

// BrowserConfig holds the content extraction engine settings
type BrowserConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	MaxContentLength  int           `mapstructure:"max_content_length"`
	UserAgent         string        `mapstructure:"user_agent"`
	Headless          bool          `mapstructure:"headless"`
}

// DigestConfig holds the digest scheduler settings
type DigestConfig struct {
	Schedule     string        `mapstructure:"schedule"` // cron expression
	Timezone     string        `mapstructure:"timezone"`
	RecentWindow time.Duration `mapstructure:"recent_window"` // look-back for content-bearing articles
	MaxArticles  int           `mapstructure:"max_articles"`  // cap on articles handed to the summarizer
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsdigest-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("NEWSAGENT")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("anthropic.api_key", "NEWSAGENT_ANTHROPIC_API_KEY")
	v.BindEnv("telegram.bot_token", "NEWSAGENT_TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "NEWSAGENT_TELEGRAM_CHAT_ID")
	v.BindEnv("database.driver", "NEWSAGENT_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "NEWSAGENT_DATABASE_DSN")
	v.BindEnv("crawler.schedule", "NEWSAGENT_CRAWLER_SCHEDULE")
	v.BindEnv("digest.schedule", "NEWSAGENT_DIGEST_SCHEDULE")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/newsagent.db")

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)

	// Telegram defaults
	v.SetDefault("telegram.max_message_length", 2000)

	// Crawler defaults
	v.SetDefault("crawler.schedule", "*/30 * * * *") // Every 30 minutes
	v.SetDefault("crawler.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("crawler.max_articles_per_cycle", 30)
	v.SetDefault("crawler.batch_size", 1)
	v.SetDefault("crawler.request_delay", time.Second)

	// Browser defaults
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.max_content_length", 20000)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	v.SetDefault("browser.headless", true)

	// Digest defaults
	v.SetDefault("digest.schedule", "0 7,13,22 * * *") // Morning, lunch, late evening
	v.SetDefault("digest.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("digest.recent_window", 24*time.Hour)
	v.SetDefault("digest.max_articles", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Crawler.BatchSize < 1 {
		return fmt.Errorf("crawler.batch_size must be at least 1")
	}
	return nil
}
