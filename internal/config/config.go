package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every semantic validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Environment string         `yaml:"environment" default:"development"`
	Log         LogConfig      `yaml:"log"`
	Server      ServerConfig   `yaml:"server"`
	Strategy    StrategyConfig `yaml:"strategy"`
	Exchange    ExchangeConfig `yaml:"exchange"`
	Trader      TraderConfig   `yaml:"trader"`
	Storage     StorageConfig  `yaml:"storage"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Telegram    TelegramConfig `yaml:"telegram"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	MetricsPath     string        `yaml:"metrics_path" default:"/metrics"`
}

// StrategyConfig is the configuration surface of the trading loop.
type StrategyConfig struct {
	Mode          string        `yaml:"mode" default:"spot" validate:"oneof=spot futures"`
	Symbol        string        `yaml:"symbol" default:"BTCUSDT" validate:"required,uppercase"`
	QuoteAsset    string        `yaml:"quote_asset" default:"USDT" validate:"required"`
	Quantity      string        `yaml:"quantity" default:"0.00015" validate:"required,numeric"`
	Interval      string        `yaml:"interval" default:"15m" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d"`
	Lookback      int           `yaml:"lookback" default:"21" validate:"gte=2,lte=1000"`
	CheckInterval time.Duration `yaml:"check_interval" default:"10s" validate:"gt=0"`

	BuyThreshold  float64 `yaml:"buy_threshold" default:"0.99" validate:"gt=0,lte=1"`
	SellThreshold float64 `yaml:"sell_threshold" default:"1.01" validate:"gte=1"`
	StopLoss      float64 `yaml:"stop_loss" default:"0.99" validate:"gt=0,lt=1"`
	TakeProfit    float64 `yaml:"take_profit" default:"1.03" validate:"gt=1"`

	Cooldown            time.Duration `yaml:"cooldown" default:"3m" validate:"gte=0"`
	CooldownEntriesOnly bool          `yaml:"cooldown_entries_only"`

	EMAFast   int `yaml:"ema_fast" default:"12" validate:"gte=1"`
	EMASlow   int `yaml:"ema_slow" default:"26" validate:"gtfield=EMAFast"`
	RSIPeriod int `yaml:"rsi_period" default:"14" validate:"gte=1"`

	SpotRSIUpper    float64 `yaml:"spot_rsi_upper" default:"70" validate:"gt=0,lte=100"`
	SpotRSILower    float64 `yaml:"spot_rsi_lower" default:"30" validate:"gte=0,lt=100"`
	FuturesRSIUpper float64 `yaml:"futures_rsi_upper" default:"75" validate:"gt=0,lte=100"`
	FuturesRSILower float64 `yaml:"futures_rsi_lower" default:"25" validate:"gte=0,lt=100"`

	BalanceSafetyMargin float64 `yaml:"balance_safety_margin" default:"0.005" validate:"gte=0,lt=1"`
	HedgeMode           bool    `yaml:"hedge_mode" default:"true"`
}

// RSIGuards returns the upper and lower RSI bounds for the selected mode.
func (s StrategyConfig) RSIGuards() (upper, lower float64) {
	if s.Mode == "futures" {
		return s.FuturesRSIUpper, s.FuturesRSILower
	}
	return s.SpotRSIUpper, s.SpotRSILower
}

type ExchangeConfig struct {
	SpotBaseURL    string        `yaml:"spot_base_url" default:"https://api.binance.com" validate:"url"`
	FuturesBaseURL string        `yaml:"futures_base_url" default:"https://fapi.binance.com" validate:"url"`
	Testnet        bool          `yaml:"testnet"`
	APIKey         string        `yaml:"api_key"`
	SecretKey      string        `yaml:"secret_key"`
	RecvWindow     int           `yaml:"recv_window" default:"5000" validate:"gte=1,lte=60000"`
	Timeout        time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
}

type TraderConfig struct {
	Mode         string  `yaml:"mode" default:"paper" validate:"oneof=paper live"`
	PaperBalance float64 `yaml:"paper_balance" default:"1000" validate:"gte=0"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend" default:"file" validate:"oneof=file postgres redis"`
	StateFile     string `yaml:"state_file" default:"state.json"`
	TradesFile    string `yaml:"trades_file" default:"trades.json"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr" default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" default:"trend-trader"`

	Postgres PostgresPoolConfig `yaml:"postgres"`
}

// PostgresPoolConfig tunes the pgx pool of the postgres backend. SSLMode is
// only applied when the database URL does not set sslmode itself.
type PostgresPoolConfig struct {
	MaxConns          int32         `yaml:"max_conns" default:"10" validate:"gte=1"`
	MinConns          int32         `yaml:"min_conns" default:"2" validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime" default:"30m"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time" default:"5m"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period" default:"30s"`
	SSLMode           string        `yaml:"ssl_mode" default:"require" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" default:"closed-trades"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Default returns a configuration populated from struct defaults only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads the YAML file at path (optional), applies defaults for missing
// keys, overrides with environment variables and validates the result.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		c.Exchange.SecretKey = v
	}
	if v := os.Getenv("BINANCE_TESTNET"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Exchange.Testnet = b
		}
	}
	if v := os.Getenv("TRADER_MODE"); v != "" {
		c.Trader.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("STRATEGY_MODE"); v != "" {
		c.Strategy.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Strategy.Symbol = strings.ToUpper(v)
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
	}
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			c.Storage.Postgres.MaxConns = int32(n)
		}
	}
	if v := os.Getenv("DB_MIN_CONNS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			c.Storage.Postgres.MinConns = int32(n)
		}
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		c.Storage.Postgres.SSLMode = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

var validate = validator.New()

// Validate checks field rules and the cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Trader.Mode == "live" && (c.Exchange.APIKey == "" || c.Exchange.SecretKey == "") {
		return fmt.Errorf("%w: live trading requires BINANCE_API_KEY and BINANCE_SECRET_KEY", ErrInvalidConfig)
	}
	if c.Storage.Backend == "postgres" && c.Storage.DatabaseURL == "" {
		return fmt.Errorf("%w: postgres storage requires DATABASE_URL", ErrInvalidConfig)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka enabled without brokers", ErrInvalidConfig)
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("%w: telegram token set without chat id", ErrInvalidConfig)
	}
	return nil
}
