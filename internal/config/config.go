package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Fetch       FetchConfig      `mapstructure:"fetch"`
	Refresh     RefreshConfig    `mapstructure:"refresh"`
	Forecast    ForecastConfig   `mapstructure:"forecast"`
	Clustering  ClusteringConfig `mapstructure:"clustering"`
	Cleanup     CleanupConfig    `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int    `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// FetchConfig selects the source adapters available to the refresh job. The
// adapter set is closed: a source not listed here is served by the default
// variant.
type FetchConfig struct {
	DefaultSource string `mapstructure:"default_source"`
	TimeoutSecs   int    `mapstructure:"timeout_seconds"`
}

type RefreshConfig struct {
	Interval   string `mapstructure:"interval"`
	StaleAfter string `mapstructure:"stale_after"`
	BatchSize  int    `mapstructure:"batch_size"`
}

type ForecastConfig struct {
	DefaultDaysAhead  int    `mapstructure:"default_days_ahead"`
	MaxDaysAhead      int    `mapstructure:"max_days_ahead"`
	HistoryWindowDays int    `mapstructure:"history_window_days"`
	CacheTTL          string `mapstructure:"cache_ttl"`
}

type ClusteringConfig struct {
	Threshold     float64 `mapstructure:"threshold"`
	DealThreshold float64 `mapstructure:"deal_threshold"`
}

type CleanupConfig struct {
	NotificationRetentionDays int `mapstructure:"notification_retention_days"`
	ForecastRetentionDays     int `mapstructure:"forecast_retention_days"`
	IntervalMinutes           int `mapstructure:"interval_minutes"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	for name, value := range map[string]string{
		"refresh.interval":    config.Refresh.Interval,
		"refresh.stale_after": config.Refresh.StaleAfter,
		"forecast.cache_ttl":  config.Forecast.CacheTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if config.Clustering.Threshold <= 0 || config.Clustering.Threshold > 1 {
		return nil, fmt.Errorf("clustering threshold must be in (0, 1], got %v", config.Clustering.Threshold)
	}

	return &config, nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "pricehawk")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_conns", 25)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")

	// Fetch adapters
	viper.SetDefault("fetch.default_source", "catalog")
	viper.SetDefault("fetch.timeout_seconds", 15)

	// Refresh job
	viper.SetDefault("refresh.interval", "2h")
	viper.SetDefault("refresh.stale_after", "6h")
	viper.SetDefault("refresh.batch_size", 100)

	// Forecasting
	viper.SetDefault("forecast.default_days_ahead", 7)
	viper.SetDefault("forecast.max_days_ahead", 30)
	viper.SetDefault("forecast.history_window_days", 90)
	viper.SetDefault("forecast.cache_ttl", "1h")

	// Clustering
	viper.SetDefault("clustering.threshold", 0.75)
	viper.SetDefault("clustering.deal_threshold", 0.7)

	// Cleanup
	viper.SetDefault("cleanup.notification_retention_days", 30)
	viper.SetDefault("cleanup.forecast_retention_days", 7)
	viper.SetDefault("cleanup.interval_minutes", 60)
}
