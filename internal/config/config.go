package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"StockForecaster/internal/forecast"
	"StockForecaster/internal/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Cache      CacheConfig      `yaml:"cache"`
	Forecast   ForecastConfig   `yaml:"forecast"`
	Database   DatabaseConfig   `yaml:"database"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Log        logger.Config    `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	AllowOrigins    []string      `yaml:"allow_origins" default:"[\"*\"]"`
}

type DataSourceConfig struct {
	Provider          string `yaml:"provider" default:"alphavantage" validate:"oneof=alphavantage yahoo simulated"`
	APIKey            string `yaml:"api_key"`
	RequestsPerMinute int    `yaml:"requests_per_minute" default:"5" validate:"gte=1"`
	Proxy             string `yaml:"proxy"`
	// Symbols are forecast by the daily job in addition to every watched symbol.
	Symbols []string `yaml:"symbols"`
	// MarketSymbols is the universe ranked by the movers endpoint.
	MarketSymbols []string `yaml:"market_symbols" default:"[\"AAPL\",\"MSFT\",\"GOOGL\",\"AMZN\",\"NVDA\",\"META\",\"TSLA\",\"JPM\"]"`
}

type CacheConfig struct {
	Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis none"`
	TTL        time.Duration `yaml:"ttl" default:"1h"`
	MaxEntries int           `yaml:"max_entries" default:"1000" validate:"gte=1"`
	Redis      RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"forecaster"`
}

type ForecastConfig struct {
	forecast.Options `yaml:",inline"`
	DefaultHorizon   int `yaml:"default_horizon" default:"30" validate:"gte=1"`
	HistoryDays      int `yaml:"history_days" default:"365" validate:"gte=7"`
}

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" default:"data/forecaster.db"`
}

type ScheduleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DailyCron string `yaml:"daily_cron" default:"0 0 22 * * 1-5"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Load fills defaults, then layers the YAML file at path and environment
// variables (including .env) on top. Explicit zero values are kept. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := map[string]*string{
		"SERVER_ADDR":          &cfg.Server.Addr,
		"DATA_PROVIDER":        &cfg.DataSource.Provider,
		"ALPHAVANTAGE_API_KEY": &cfg.DataSource.APIKey,
		"HTTPS_PROXY":          &cfg.DataSource.Proxy,
		"CACHE_BACKEND":        &cfg.Cache.Backend,
		"REDIS_ADDR":           &cfg.Cache.Redis.Addr,
		"REDIS_PASSWORD":       &cfg.Cache.Redis.Password,
		"SQLITE_PATH":          &cfg.Database.SQLitePath,
		"CRON_DAILY":           &cfg.Schedule.DailyCron,
		"TELEGRAM_BOT_TOKEN":   &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":     &cfg.Telegram.ChatID,
		"LOG_LEVEL":            &cfg.Log.Level,
		"LOG_FORMAT":           &cfg.Log.Format,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("FORECAST_SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitList(v)
	}
	if v := os.Getenv("FORECAST_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Forecast.Seed = seed
		}
	}
	if v := os.Getenv("SCHEDULE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.Enabled = b
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks field constraints and the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Forecast.DefaultHorizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast.default_horizon %d exceeds forecast.max_horizon %d",
			c.Forecast.DefaultHorizon, c.Forecast.MaxHorizon)
	}
	if c.DataSource.Provider == "alphavantage" && c.DataSource.APIKey == "" {
		return fmt.Errorf("data_source.api_key is required for the alphavantage provider")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
