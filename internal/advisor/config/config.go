package config

import (
	"time"

	"stock-insight-agent/internal/entity"
	"stock-insight-agent/pkg/config"
)

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	BaseURL             string `mapstructure:"base_url"`
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
	MaxRetries          int    `mapstructure:"max_retries"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// YahooFinance holds the configuration for the Yahoo Finance API.
type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxConcurrent       int           `mapstructure:"max_concurrent"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// News holds configuration for the headline context fetcher.
type News struct {
	Enabled        bool          `mapstructure:"enabled"`
	RSSBaseURL     string        `mapstructure:"rss_base_url"`
	MaxPerTicker   int           `mapstructure:"max_per_ticker"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Scheduler holds the cron settings for the biweekly run.
type Scheduler struct {
	Enabled  bool   `mapstructure:"enabled"`
	CronSpec string `mapstructure:"cron_spec"`
}

// Portfolio holds the portfolio-level constants.
type Portfolio struct {
	Name            string  `mapstructure:"name"`
	StartingCapital float64 `mapstructure:"starting_capital"`
	BenchmarkTicker string  `mapstructure:"benchmark_ticker"`
	CashVehicle     string  `mapstructure:"cash_vehicle"`
	CashYieldPct    float64 `mapstructure:"cash_yield_pct"`
}

// Risk holds the escalation thresholds for the risk-mode classifier.
type Risk struct {
	Thresholds entity.RiskThresholds `mapstructure:"thresholds"`
}

// Config holds the full configuration for the advisor service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	API          config.API      `mapstructure:"api"`
	Gemini       Gemini          `mapstructure:"gemini"`
	Telegram     Telegram        `mapstructure:"telegram"`
	YahooFinance YahooFinance    `mapstructure:"yahoo_finance"`
	News         News            `mapstructure:"news"`
	Scheduler    Scheduler       `mapstructure:"scheduler"`
	Portfolio    Portfolio       `mapstructure:"portfolio"`
	Risk         Risk            `mapstructure:"risk"`
}

// Load loads the advisor configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Risk.Thresholds == (entity.RiskThresholds{}) {
		cfg.Risk.Thresholds = entity.DefaultRiskThresholds()
	}
	return &cfg, nil
}
