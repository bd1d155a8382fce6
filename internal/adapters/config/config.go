package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration, loaded from environment
// variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CoinGecko CoinGeckoConfig
	Sync      SyncConfig
	LLM       LLMConfig
	News      NewsConfig
	Auth      AuthConfig
	Telegram  TelegramConfig
	Logging   LoggingConfig
}

// ServerConfig represents the HTTP server parameters.
type ServerConfig struct {
	Port           string   `envconfig:"SERVER_PORT" default:"8080"`
	AllowedOrigins []string `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig represents database connection parameters.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"coinboard"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// CoinGeckoConfig represents the market-data provider parameters.
type CoinGeckoConfig struct {
	BaseURL      string        `envconfig:"COINGECKO_BASE_URL" default:"https://api.coingecko.com/api/v3"`
	APIKey       string        `envconfig:"COINGECKO_API_KEY" required:"false"`
	Timeout      time.Duration `envconfig:"COINGECKO_TIMEOUT" default:"10s"`
	MaxRetries   int           `envconfig:"COINGECKO_MAX_RETRIES" default:"5"`
	InitialDelay time.Duration `envconfig:"COINGECKO_INITIAL_DELAY" default:"1s"`
}

// SyncConfig represents the reconciliation pipeline parameters.
type SyncConfig struct {
	TopN              int           `envconfig:"SYNC_TOP_N" default:"100"`
	Interval          time.Duration `envconfig:"SYNC_INTERVAL" default:"1h"`
	CacheTTL          time.Duration `envconfig:"SYNC_CACHE_TTL" default:"1h"`
	DetailFetchDelay  time.Duration `envconfig:"SYNC_DETAIL_FETCH_DELAY" default:"2s"`
	IndicatorInterval time.Duration `envconfig:"SYNC_INDICATOR_INTERVAL" default:"24h"`
}

// LLMConfig represents the hosted LLM API parameters.
type LLMConfig struct {
	APIKey      string  `envconfig:"LLM_API_KEY" required:"true"`
	Model       string  `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	Temperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"1500"`
}

// NewsConfig represents news aggregation configuration.
type NewsConfig struct {
	Enabled  bool          `envconfig:"NEWS_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"NEWS_INTERVAL" default:"30m"`
	Limit    int           `envconfig:"NEWS_LIMIT" default:"30"`
}

// AuthConfig represents token and password-reset parameters.
type AuthConfig struct {
	JWTSecret     string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
	TokenTTL      time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	ResetTokenTTL time.Duration `envconfig:"AUTH_RESET_TOKEN_TTL" default:"1h"`
	MailFrom      string        `envconfig:"AUTH_MAIL_FROM" default:"no-reply@coinboard.local"`
}

// TelegramConfig represents the optional operator alert bot.
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.Sync.TopN <= 0 || c.Sync.TopN > 250 {
		return fmt.Errorf("sync top_n must be between 1 and 250")
	}
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("sync interval must be at least 1m")
	}
	if c.Sync.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.CoinGecko.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm max_tokens must be positive")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat_id is required when a bot token is set")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
