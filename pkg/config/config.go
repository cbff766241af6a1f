package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"TradeDesk/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled       bool          `yaml:"enabled"`
			Sink          string        `yaml:"sink" default:"redis"`
			Topic         string        `yaml:"topic" default:"logs.errors"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
			Threshold     int           `yaml:"threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Trading struct {
		TestMode        bool                 `yaml:"test_mode" default:"true"`
		Strategy        string               `yaml:"strategy" default:"combined"`
		QuoteAsset      string               `yaml:"quote_asset" default:"USDT"`
		CycleInterval   time.Duration        `yaml:"cycle_interval" default:"60s"`
		CandleLimit     int                  `yaml:"candle_limit" default:"100"`
		ActionThreshold float64              `yaml:"action_threshold" default:"50"`
		LedgerCapacity  int                  `yaml:"ledger_capacity" default:"1000"`
		Risk            models.TradingConfig `yaml:"risk"`
		Autostart       []Worker             `yaml:"autostart"`
	} `yaml:"trading"`
	Market struct {
		Source string `yaml:"source" default:"binance"`
	} `yaml:"market"`
	Binance struct {
		BaseURL    string        `yaml:"base_url" default:"https://api.binance.com"`
		APIKey     string        `yaml:"api_key"`
		APISecret  string        `yaml:"api_secret"`
		RecvWindow int64         `yaml:"recv_window" default:"5000"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
		RateLimit  struct {
			Capacity float64 `yaml:"capacity" default:"20"`
			Refill   float64 `yaml:"refill_per_sec" default:"10"`
		} `yaml:"rate_limit"`
		FiltersTTL time.Duration `yaml:"filters_ttl" default:"1h"`
		Stream     struct {
			Enabled        bool          `yaml:"enabled" default:"true"`
			URL            string        `yaml:"url" default:"wss://stream.binance.com:9443/ws"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
			MaxStaleness   time.Duration `yaml:"max_staleness" default:"15s"`
		} `yaml:"stream"`
	} `yaml:"binance"`
	Paper struct {
		StartingBalance float64 `yaml:"starting_balance" default:"10000"`
		MinQty          float64 `yaml:"min_qty" default:"0.00001"`
		StepSize        float64 `yaml:"step_size" default:"0.00001"`
	} `yaml:"paper"`
	Persistence struct {
		Type     string `yaml:"type" default:"file"`
		FilePath string `yaml:"file_path" default:"data/trading_state.json"`
		RedisKey string `yaml:"redis_key" default:"tradedesk:state"`
		Postgres struct {
			Host            string        `yaml:"host" default:"localhost"`
			Port            int           `yaml:"port" default:"5432"`
			User            string        `yaml:"user" default:"postgres"`
			Password        string        `yaml:"password"`
			Database        string        `yaml:"database" default:"tradedesk"`
			SSLMode         string        `yaml:"ssl_mode" default:"disable"`
			MaxOpenConns    int           `yaml:"max_open_conns" default:"5"`
			MaxIdleConns    int           `yaml:"max_idle_conns" default:"2"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
		} `yaml:"postgres"`
	} `yaml:"persistence"`
	Events struct {
		Backend    string        `yaml:"backend" default:"none"`
		BufferSize int           `yaml:"buffer_size" default:"1000"`
		MaxBackoff time.Duration `yaml:"max_backoff" default:"2s"`
	} `yaml:"events"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"tradedesk.trades"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"10"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"tradedesk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		CandlesTable     string        `yaml:"candles_table" default:"candles"`
		TradesTable      string        `yaml:"trades_table" default:"trades"`
	} `yaml:"clickhouse"`
	Cache struct {
		MemorySize int `yaml:"memory_size" default:"1000"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"tradedesk"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Worker is a (symbol, interval) pair started at boot.
type Worker struct {
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval" default:"1h"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Missing keys take their
// defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for i := range c.Trading.Autostart {
		if err := defaults.Set(&c.Trading.Autostart[i]); err != nil {
			return nil, fmt.Errorf("apply defaults: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies
// environment overrides. An empty path starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Binance.APISecret = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		c.Binance.BaseURL = v
	}
	if v := os.Getenv("TEST_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trading.TestMode = b
		}
	}
	if v := os.Getenv("STRATEGY"); v != "" {
		c.Trading.Strategy = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("PERSISTENCE_TYPE"); v != "" {
		c.Persistence.Type = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Persistence.Postgres.Password = v
	}
	if v := os.Getenv("EVENTS_BACKEND"); v != "" {
		c.Events.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Market.Source {
	case "binance":
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when market.source is 'clickhouse'")
		}
	default:
		return fmt.Errorf("market.source must be 'binance' or 'clickhouse', got '%s'", c.Market.Source)
	}
	if !c.Trading.TestMode && (c.Binance.APIKey == "" || c.Binance.APISecret == "") {
		return fmt.Errorf("binance.api_key and binance.api_secret are required when test_mode is off")
	}
	if c.Trading.CycleInterval <= 0 {
		return fmt.Errorf("trading.cycle_interval must be positive")
	}
	for _, w := range c.Trading.Autostart {
		if w.Symbol == "" {
			return fmt.Errorf("trading.autostart entries need a symbol")
		}
	}
	switch c.Persistence.Type {
	case "file", "postgres":
	case "redis":
		if !c.Cache.Redis.Enabled {
			return fmt.Errorf("persistence.type 'redis' requires cache.redis.enabled")
		}
	default:
		return fmt.Errorf("persistence.type must be 'file', 'redis' or 'postgres', got '%s'", c.Persistence.Type)
	}
	switch c.Events.Backend {
	case "none":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when events.backend is 'kafka'")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when events.backend is 'clickhouse'")
		}
	default:
		return fmt.Errorf("events.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Events.Backend)
	}
	if c.Logging.Collector.Enabled {
		switch c.Logging.Collector.Sink {
		case "redis":
			if !c.Cache.Redis.Enabled {
				return fmt.Errorf("logging.collector.sink 'redis' requires cache.redis.enabled")
			}
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("logging.collector.sink 'kafka' requires kafka.brokers")
			}
		default:
			return fmt.Errorf("logging.collector.sink must be 'redis' or 'kafka', got '%s'", c.Logging.Collector.Sink)
		}
	}
	return nil
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	p := c.Persistence.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
