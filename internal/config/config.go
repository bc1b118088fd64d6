package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo | financego | mock
		Proxy    string `yaml:"proxy"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"data_source"`
	Cache struct {
		TTL     string `yaml:"ttl"`
		Backend string `yaml:"backend"` // memory | redis
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Indicators struct {
		Window int `yaml:"window"`
	} `yaml:"indicators"`
	Watchlist struct {
		Symbols      []string `yaml:"symbols"`
		LookbackDays int      `yaml:"lookback_days"`
		RefreshCron  string   `yaml:"refresh_cron"`
	} `yaml:"watchlist"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Analyst struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"analyst"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Load reads config from a YAML file, then a .env file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		cfg.Cache.TTL = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("INDICATOR_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indicators.Window = n
		}
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist.Symbols = splitList(v)
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Watchlist.RefreshCron = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Analyst.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Analyst.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.Timeout == "" {
		cfg.DataSource.Timeout = "30s"
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "1h"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "marketlens:cache:"
	}
	if cfg.Indicators.Window == 0 {
		cfg.Indicators.Window = 20
	}
	if cfg.Watchlist.LookbackDays == 0 {
		cfg.Watchlist.LookbackDays = 730
	}
	if cfg.Watchlist.RefreshCron == "" {
		cfg.Watchlist.RefreshCron = "0 30 22 * * 1-5"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/marketlens.db"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "marketlens.snapshots"
	}
	cfg.Watchlist.Symbols = normalizeSymbols(cfg.Watchlist.Symbols)

	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "financego", "mock":
	default:
		return fmt.Errorf("data_source.provider must be yahoo, financego or mock, got %q", c.DataSource.Provider)
	}
	if _, err := c.FetchTimeout(); err != nil {
		return err
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Indicators.Window < 1 {
		return fmt.Errorf("indicators.window must be positive")
	}
	if c.Watchlist.LookbackDays < 1 {
		return fmt.Errorf("watchlist.lookback_days must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// FetchTimeout parses data_source.timeout.
func (c *Config) FetchTimeout() (time.Duration, error) {
	return positiveDuration("data_source.timeout", c.DataSource.Timeout)
}

// CacheTTL parses cache.ttl. A bare integer is read as seconds.
func (c *Config) CacheTTL() (time.Duration, error) {
	return positiveDuration("cache.ttl", c.Cache.TTL)
}

// TelegramEnabled reports whether digests should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func positiveDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		n, nerr := strconv.Atoi(v)
		if nerr != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		d = time.Duration(n) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeSymbols trims and deduplicates, keeping first-seen order. Case is significant.
func normalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
